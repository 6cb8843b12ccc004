// internal/storage/postgres/listings.go
package postgres

import (
	"context"
	"fmt"

	"marketplace-assistant/internal/models"
)

// GetListings returns the active marketplace listing candidate set.
func (s *Store) GetListings(ctx context.Context) ([]models.ListingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description, category, location, is_free, cost, created_at
		FROM listings WHERE active = true ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	listings := []models.ListingRecord{}
	for rows.Next() {
		var listing models.ListingRecord
		if err := rows.Scan(
			&listing.ID,
			&listing.Title,
			&listing.Description,
			&listing.Category,
			&listing.Location,
			&listing.IsFree,
			&listing.Cost,
			&listing.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning listing row: %w", err)
		}
		listings = append(listings, listing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listing rows: %w", err)
	}
	return listings, nil
}
