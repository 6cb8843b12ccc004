// internal/storage/postgres/businesses.go
package postgres

import (
	"context"
	"fmt"

	"marketplace-assistant/internal/models"
)

const businessColumns = "id, name, category, description, address, phone, email, hours"

// GetBusiness loads one business profile by id.
func (s *Store) GetBusiness(ctx context.Context, businessID string) (models.BusinessRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM businesses WHERE id = $1", businessColumns)
	var business models.BusinessRecord
	err := s.db.QueryRowContext(ctx, query, businessID).Scan(
		&business.ID,
		&business.Name,
		&business.Category,
		&business.Description,
		&business.Address,
		&business.Phone,
		&business.Email,
		&business.Hours,
	)
	if err != nil {
		return models.BusinessRecord{}, fmt.Errorf("querying business %s: %w", businessID, err)
	}
	return business, nil
}

// GetBusinessesByCategory lists businesses sharing a category. Callers
// exclude the requesting business themselves.
func (s *Store) GetBusinessesByCategory(ctx context.Context, category string) ([]models.BusinessRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM businesses WHERE category = $1 ORDER BY name ASC", businessColumns)
	rows, err := s.db.QueryContext(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("querying businesses by category: %w", err)
	}
	defer rows.Close()

	businesses := []models.BusinessRecord{}
	for rows.Next() {
		var business models.BusinessRecord
		if err := rows.Scan(
			&business.ID,
			&business.Name,
			&business.Category,
			&business.Description,
			&business.Address,
			&business.Phone,
			&business.Email,
			&business.Hours,
		); err != nil {
			return nil, fmt.Errorf("scanning business row: %w", err)
		}
		businesses = append(businesses, business)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating business rows: %w", err)
	}
	return businesses, nil
}
