// internal/assistant/quota/gate_test.go
package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

// ==========================================
// Test Doubles
// ==========================================

type stubStore struct {
	used       int
	getErr     error
	incErr     error
	increments int
}

func (s *stubStore) GetUsage(ctx context.Context, businessID string, limit int) (models.Usage, error) {
	if s.getErr != nil {
		return models.Usage{}, s.getErr
	}
	return models.Usage{Used: s.used, Limit: limit}, nil
}

func (s *stubStore) IncrementUsage(ctx context.Context, businessID string) (int, error) {
	if s.incErr != nil {
		return 0, s.incErr
	}
	s.increments++
	s.used++
	return s.used, nil
}

func meteredConfig(limit int) models.AgentConfig {
	return models.AgentConfig{BusinessID: "biz-1", Plan: models.PlanMetered, MonthlyLimit: limit}
}

// ==========================================
// CheckAndReserve
// ==========================================

func TestCheckAndReserve_AtLimitDenies(t *testing.T) {
	store := &stubStore{used: 5}
	gate := New(store, logger.NewNoOpLogger())

	decision, err := gate.CheckAndReserve(context.Background(), "biz-1", meteredConfig(5))

	require.NoError(t, err)
	assert.False(t, decision.CanProceed)
	assert.Equal(t, 5, decision.Usage.Used)
	assert.Equal(t, 5, decision.Usage.Limit)
	assert.Equal(t, 0, store.increments, "denial must not mutate usage")
}

func TestCheckAndReserve_UnderLimitProceedsWithoutMutation(t *testing.T) {
	store := &stubStore{used: 4}
	gate := New(store, logger.NewNoOpLogger())

	decision, err := gate.CheckAndReserve(context.Background(), "biz-1", meteredConfig(5))

	require.NoError(t, err)
	assert.True(t, decision.CanProceed)
	assert.Equal(t, 4, decision.Usage.Used)
	assert.Equal(t, 0, store.increments)
}

func TestCheckAndReserve_OverLimitDenies(t *testing.T) {
	store := &stubStore{used: 7}
	gate := New(store, logger.NewNoOpLogger())

	decision, err := gate.CheckAndReserve(context.Background(), "biz-1", meteredConfig(5))

	require.NoError(t, err)
	assert.False(t, decision.CanProceed)
}

func TestCheckAndReserve_UnlimitedPlanAlwaysPasses(t *testing.T) {
	store := &stubStore{used: 10000}
	gate := New(store, logger.NewNoOpLogger())

	config := models.AgentConfig{BusinessID: "biz-1", Plan: models.PlanUnlimited, MonthlyLimit: 100}
	decision, err := gate.CheckAndReserve(context.Background(), "biz-1", config)

	require.NoError(t, err)
	assert.True(t, decision.CanProceed)
}

func TestCheckAndReserve_UnlimitedPlanIgnoresStoreErrors(t *testing.T) {
	store := &stubStore{getErr: errors.New("redis down")}
	gate := New(store, logger.NewNoOpLogger())

	config := models.AgentConfig{BusinessID: "biz-1", Plan: models.PlanUnlimited}
	decision, err := gate.CheckAndReserve(context.Background(), "biz-1", config)

	require.NoError(t, err)
	assert.True(t, decision.CanProceed)
}

func TestCheckAndReserve_StoreErrorPropagates(t *testing.T) {
	store := &stubStore{getErr: errors.New("redis down")}
	gate := New(store, logger.NewNoOpLogger())

	_, err := gate.CheckAndReserve(context.Background(), "biz-1", meteredConfig(5))

	assert.Error(t, err)
}

// ==========================================
// Commit
// ==========================================

func TestCommit_IncrementsExactlyOnce(t *testing.T) {
	store := &stubStore{used: 4}
	gate := New(store, logger.NewNoOpLogger())

	usage, err := gate.Commit(context.Background(), "biz-1", meteredConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 1, store.increments)
	assert.Equal(t, 5, usage.Used)
	assert.Equal(t, 5, usage.Limit)
}

func TestCommit_ErrorPropagates(t *testing.T) {
	store := &stubStore{incErr: errors.New("redis down")}
	gate := New(store, logger.NewNoOpLogger())

	_, err := gate.Commit(context.Background(), "biz-1", meteredConfig(5))

	assert.Error(t, err)
}
