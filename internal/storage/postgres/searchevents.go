// internal/storage/postgres/searchevents.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace-assistant/internal/models"
)

// RecordSearch writes one search interaction for analytics.
func (s *Store) RecordSearch(ctx context.Context, event models.SearchEvent) error {
	userID := sql.NullString{String: event.UserID, Valid: event.UserID != ""}
	_, err := s.db.ExecContext(ctx, `INSERT INTO search_events
			(id, query, user_id, result_count, fallback, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID,
		event.Query,
		userID,
		event.ResultCount,
		event.Fallback,
		event.LatencyMs,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording search event: %w", err)
	}
	return nil
}
