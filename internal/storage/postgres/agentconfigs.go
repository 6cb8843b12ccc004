// internal/storage/postgres/agentconfigs.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"marketplace-assistant/internal/models"
)

// Get loads the agent configuration for a business. A nil config with nil
// error means no agent has been configured yet.
func (s *Store) Get(ctx context.Context, businessID string) (*models.AgentConfig, error) {
	var (
		config        models.AgentConfig
		knowledgeBase []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT business_id, active, personality, welcome_message,
			max_response_length, plan, monthly_limit, include_platform_context, knowledge_base
		FROM agent_configs WHERE business_id = $1`, businessID).Scan(
		&config.BusinessID,
		&config.Active,
		&config.Personality,
		&config.WelcomeMessage,
		&config.MaxResponseLength,
		&config.Plan,
		&config.MonthlyLimit,
		&config.IncludePlatformContext,
		&knowledgeBase,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying agent config %s: %w", businessID, err)
	}

	if len(knowledgeBase) > 0 {
		if err := json.Unmarshal(knowledgeBase, &config.KnowledgeBase); err != nil {
			return nil, fmt.Errorf("decoding knowledge base for %s: %w", businessID, err)
		}
	}
	return &config, nil
}

// Create inserts the configuration written on first activation.
func (s *Store) Create(ctx context.Context, config models.AgentConfig) error {
	knowledgeBase, err := json.Marshal(config.KnowledgeBase)
	if err != nil {
		return fmt.Errorf("encoding knowledge base: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO agent_configs
			(business_id, active, personality, welcome_message, max_response_length,
			 plan, monthly_limit, include_platform_context, knowledge_base)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		config.BusinessID,
		config.Active,
		config.Personality,
		config.WelcomeMessage,
		config.MaxResponseLength,
		config.Plan,
		config.MonthlyLimit,
		config.IncludePlatformContext,
		knowledgeBase,
	)
	if err != nil {
		return fmt.Errorf("creating agent config %s: %w", config.BusinessID, err)
	}
	return nil
}

// Update replaces the mutable fields of an existing configuration.
func (s *Store) Update(ctx context.Context, config models.AgentConfig) error {
	knowledgeBase, err := json.Marshal(config.KnowledgeBase)
	if err != nil {
		return fmt.Errorf("encoding knowledge base: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `UPDATE agent_configs SET
			active = $2, personality = $3, welcome_message = $4, max_response_length = $5,
			plan = $6, monthly_limit = $7, include_platform_context = $8, knowledge_base = $9
		WHERE business_id = $1`,
		config.BusinessID,
		config.Active,
		config.Personality,
		config.WelcomeMessage,
		config.MaxResponseLength,
		config.Plan,
		config.MonthlyLimit,
		config.IncludePlatformContext,
		knowledgeBase,
	)
	if err != nil {
		return fmt.Errorf("updating agent config %s: %w", config.BusinessID, err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("updating agent config %s: no such config", config.BusinessID)
	}
	return nil
}
