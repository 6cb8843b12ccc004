// internal/assistant/conversation/orchestrator.go
package conversation

import (
	"context"
	"fmt"
	"time"

	"marketplace-assistant/internal/assistant/moderation"
	"marketplace-assistant/internal/assistant/quota"
	"marketplace-assistant/internal/common/llm"
	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/common/metrics"
	"marketplace-assistant/internal/models"
)

// Fixed user-visible messages. Failures surface as short natural language in
// the same channel as a successful answer, never as raw errors.
const (
	overQuotaMessage      = "This assistant has reached its monthly question limit. Please contact the business directly or try again next month."
	contentWarningMessage = "I can't help with that request. Please rephrase your question and keep it related to the business."
	unavailableMessage    = "The assistant for this business isn't available right now. Please contact the business directly."
	apologyMessage        = "Sorry, I'm having trouble answering right now. Please try again in a moment."
)

// charsPerToken is the rough character-to-token ratio used to bound model
// output proportionally to the configured response length.
const charsPerToken = 4

// minCompletionTokens keeps short response-length configs from strangling
// the model output entirely.
const minCompletionTokens = 60

// AgentConfigStore loads per-business assistant configuration. A nil config
// with nil error means no agent is configured for the business.
type AgentConfigStore interface {
	Get(ctx context.Context, businessID string) (*models.AgentConfig, error)
}

// BusinessStore loads the business profile backing the agent.
type BusinessStore interface {
	GetBusiness(ctx context.Context, businessID string) (models.BusinessRecord, error)
}

// ConversationStore persists completed turn pairs and their metadata.
type ConversationStore interface {
	AppendConversation(ctx context.Context, conv models.Conversation) error
}

// QuotaGate is the allowance check/commit pair from the quota package.
type QuotaGate interface {
	CheckAndReserve(ctx context.Context, businessID string, config models.AgentConfig) (quota.Decision, error)
	Commit(ctx context.Context, businessID string, config models.AgentConfig) (models.Usage, error)
}

// ModerationGate screens the user message before any model call.
type ModerationGate interface {
	Classify(ctx context.Context, text string, mode moderation.FailureMode) models.ModerationVerdict
}

// PromptBuilder assembles the agent's system prompt.
type PromptBuilder interface {
	BuildPrompt(ctx context.Context, config models.AgentConfig, business models.BusinessRecord) string
}

// TurnResult is the single reply produced for one user turn.
type TurnResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Usage   *models.Usage `json:"usage,omitempty"`
}

// Orchestrator runs the strict linear turn pipeline: quota, moderation,
// config, prompt, model call, persistence. Each gate exits early; no retries.
type Orchestrator struct {
	configs       AgentConfigStore
	businesses    BusinessStore
	conversations ConversationStore
	quotaGate     QuotaGate
	moderationGate ModerationGate
	promptBuilder PromptBuilder
	client        llm.Client
	temperature   float64
	logger        logger.Logger
}

func New(
	configs AgentConfigStore,
	businesses BusinessStore,
	conversations ConversationStore,
	quotaGate QuotaGate,
	moderationGate ModerationGate,
	promptBuilder PromptBuilder,
	client llm.Client,
	temperature float64,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		configs:        configs,
		businesses:     businesses,
		conversations:  conversations,
		quotaGate:      quotaGate,
		moderationGate: moderationGate,
		promptBuilder:  promptBuilder,
		client:         client,
		temperature:    temperature,
		logger: log.With(map[string]interface{}{
			"component": "conversation-orchestrator",
		}),
	}
}

// HandleTurn produces one assistant reply. The returned error is non-nil
// only when persistence fails after an otherwise-successful model call; the
// caller decides whether to ask the user to resubmit. Every other failure is
// reported inside the TurnResult.
func (o *Orchestrator) HandleTurn(ctx context.Context, businessID, userMessage, sessionID, userID string) (TurnResult, error) {
	// The quota limit lives on the config, so the load happens before the
	// gates run. A missing or inactive agent exits with the fixed message.
	config, err := o.configs.Get(ctx, businessID)
	if err != nil {
		o.logger.Error("agent config load failed", map[string]interface{}{
			"businessId": businessID,
			"error":      err.Error(),
		})
		return o.finish("unavailable", TurnResult{Message: unavailableMessage}), nil
	}
	if config == nil || !config.Active {
		return o.finish("unavailable", TurnResult{Message: unavailableMessage}), nil
	}

	decision, err := o.quotaGate.CheckAndReserve(ctx, businessID, *config)
	if err != nil {
		o.logger.Error("quota check failed", map[string]interface{}{
			"businessId": businessID,
			"error":      err.Error(),
		})
		return o.finish("error", TurnResult{Message: apologyMessage}), nil
	}
	if !decision.CanProceed {
		usage := decision.Usage
		return o.finish("over_quota", TurnResult{Message: overQuotaMessage, Usage: &usage}), nil
	}

	verdict := o.moderationGate.Classify(ctx, userMessage, moderation.FailOpen)
	if verdict.Action != models.ActionApproved {
		return o.finish("rejected", TurnResult{Message: contentWarningMessage}), nil
	}

	business, err := o.businesses.GetBusiness(ctx, businessID)
	if err != nil {
		o.logger.Error("business load failed", map[string]interface{}{
			"businessId": businessID,
			"error":      err.Error(),
		})
		return o.finish("unavailable", TurnResult{Message: unavailableMessage}), nil
	}

	prompt := o.promptBuilder.BuildPrompt(ctx, *config, business)

	completion, err := o.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: prompt},
		{Role: "user", Content: userMessage},
	}, llm.Options{
		Temperature: o.temperature,
		MaxTokens:   completionTokenBudget(config),
	})
	if err != nil {
		o.logger.Warn("model call failed", map[string]interface{}{
			"businessId": businessID,
			"error":      err.Error(),
		})
		return o.finish("model_error", TurnResult{Message: apologyMessage}), nil
	}

	usage, err := o.quotaGate.Commit(ctx, businessID, *config)
	if err != nil {
		return o.finish("persistence_error", TurnResult{}), fmt.Errorf("recording usage after successful turn: %w", err)
	}

	now := time.Now().UTC()
	conv := models.Conversation{
		BusinessID: businessID,
		SessionID:  sessionID,
		UserID:     userID,
		Turns: []models.ConversationTurn{
			{Role: models.RoleUser, Content: userMessage, Timestamp: now},
			{Role: models.RoleAssistant, Content: completion.Text, Timestamp: now},
		},
		TokensUsed: completion.TokensUsed,
	}
	if err := o.conversations.AppendConversation(ctx, conv); err != nil {
		return o.finish("persistence_error", TurnResult{}), fmt.Errorf("appending conversation after successful turn: %w", err)
	}

	return o.finish("ok", TurnResult{
		Success: true,
		Message: completion.Text,
		Usage:   &usage,
	}), nil
}

func (o *Orchestrator) finish(outcome string, result TurnResult) TurnResult {
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()
	return result
}

// completionTokenBudget bounds output tokens proportionally to the clamped
// response length.
func completionTokenBudget(config *models.AgentConfig) int {
	budget := config.ClampResponseLength() / charsPerToken
	if budget < minCompletionTokens {
		return minCompletionTokens
	}
	return budget
}
