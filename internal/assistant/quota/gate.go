// internal/assistant/quota/gate.go
package quota

import (
	"context"
	"fmt"

	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/common/metrics"
	"marketplace-assistant/internal/models"
)

// UsageStore is the persisted monthly counter behind the gate. Increment is
// atomic at the storage layer so concurrent turns cannot overshoot the
// allowance by more than one unit.
type UsageStore interface {
	GetUsage(ctx context.Context, businessID string, limit int) (models.Usage, error)
	IncrementUsage(ctx context.Context, businessID string) (int, error)
}

// Decision is the gate's verdict plus the usage snapshot it was based on.
type Decision struct {
	CanProceed bool         `json:"canProceed"`
	Usage      models.Usage `json:"usage"`
}

// Gate enforces the per-business monthly query allowance.
type Gate struct {
	store  UsageStore
	logger logger.Logger
}

func New(store UsageStore, log logger.Logger) *Gate {
	return &Gate{
		store: store,
		logger: log.With(map[string]interface{}{
			"component": "quota-gate",
		}),
	}
}

// CheckAndReserve compares usage against the allowance without mutating it.
// The caller commits one unit only after a successful model call, so failed
// turns never consume quota. Unmetered plans always pass.
func (g *Gate) CheckAndReserve(ctx context.Context, businessID string, config models.AgentConfig) (Decision, error) {
	if config.Plan == models.PlanUnlimited {
		usage, err := g.store.GetUsage(ctx, businessID, config.MonthlyLimit)
		if err != nil {
			// Usage is informational for unmetered plans, never blocking.
			usage = models.Usage{Used: 0, Limit: config.MonthlyLimit}
		}
		return Decision{CanProceed: true, Usage: usage}, nil
	}

	usage, err := g.store.GetUsage(ctx, businessID, config.MonthlyLimit)
	if err != nil {
		return Decision{}, fmt.Errorf("quota check failed for business %s: %w", businessID, err)
	}

	if usage.Used >= usage.Limit {
		metrics.QuotaDenials.Inc()
		g.logger.Info("quota exceeded", map[string]interface{}{
			"businessId": businessID,
			"used":       usage.Used,
			"limit":      usage.Limit,
		})
		return Decision{CanProceed: false, Usage: usage}, nil
	}

	return Decision{CanProceed: true, Usage: usage}, nil
}

// Commit records one consumed unit and returns the updated usage snapshot.
func (g *Gate) Commit(ctx context.Context, businessID string, config models.AgentConfig) (models.Usage, error) {
	used, err := g.store.IncrementUsage(ctx, businessID)
	if err != nil {
		return models.Usage{}, fmt.Errorf("quota commit failed for business %s: %w", businessID, err)
	}
	return models.Usage{Used: used, Limit: config.MonthlyLimit}, nil
}
