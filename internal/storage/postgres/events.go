// internal/storage/postgres/events.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"marketplace-assistant/internal/models"
)

const eventColumns = "id, title, description, category, location, start_date, is_free, cost, view_count, created_at"

// GetEvents returns the published event candidate set, newest first.
func (s *Store) GetEvents(ctx context.Context) ([]models.EventRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE published = true ORDER BY created_at DESC", eventColumns)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetUpcomingEvents returns events starting within the next `days` days.
func (s *Store) GetUpcomingEvents(ctx context.Context, days int, limit int) ([]models.EventRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM events
		WHERE published = true
		  AND start_date::date >= CURRENT_DATE
		  AND start_date::date <= CURRENT_DATE + $1 * INTERVAL '1 day'
		ORDER BY start_date ASC
		LIMIT $2`, eventColumns)
	rows, err := s.db.QueryContext(ctx, query, days, limit)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetPopularEvents returns the top events by view count.
func (s *Store) GetPopularEvents(ctx context.Context, limit int) ([]models.EventRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE published = true ORDER BY view_count DESC LIMIT $1", eventColumns)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying popular events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]models.EventRecord, error) {
	events := []models.EventRecord{}
	for rows.Next() {
		var event models.EventRecord
		if err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.Category,
			&event.Location,
			&event.StartDate,
			&event.IsFree,
			&event.Cost,
			&event.ViewCount,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning event row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}
	return events, nil
}
