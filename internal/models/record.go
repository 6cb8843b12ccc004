// internal/models/record.go
package models

import "time"

// EventRecord is a read-only projection of a published event. The assistant
// core only reads and filters these, it never writes them back.
type EventRecord struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Location    string    `json:"location" db:"location"`
	StartDate   string    `json:"startDate" db:"start_date"`
	IsFree      bool      `json:"isFree" db:"is_free"`
	Cost        float64   `json:"cost" db:"cost"`
	ViewCount   int       `json:"viewCount" db:"view_count"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// ListingRecord is a read-only projection of a marketplace listing.
type ListingRecord struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Location    string    `json:"location" db:"location"`
	IsFree      bool      `json:"isFree" db:"is_free"`
	Cost        float64   `json:"cost" db:"cost"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// BusinessRecord is a read-only projection of a business profile.
type BusinessRecord struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Category    string `json:"category" db:"category"`
	Description string `json:"description" db:"description"`
	Address     string `json:"address" db:"address"`
	Phone       string `json:"phone" db:"phone"`
	Email       string `json:"email" db:"email"`
	Hours       string `json:"hours" db:"hours"`
}

// SearchEvent records one search interaction for analytics.
type SearchEvent struct {
	ID          string    `json:"id" db:"id"`
	Query       string    `json:"query" db:"query"`
	UserID      string    `json:"userId,omitempty" db:"user_id"`
	ResultCount int       `json:"resultCount" db:"result_count"`
	Fallback    bool      `json:"fallback" db:"fallback"`
	LatencyMs   int       `json:"latencyMs" db:"latency_ms"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}
