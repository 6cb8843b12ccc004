// internal/storage/postgres/store.go
package postgres

import (
	"database/sql"

	"marketplace-assistant/internal/common/logger"
)

// Store is the read-mostly SQL backend for records, agent configuration, and
// search analytics.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db: db,
		logger: log.With(map[string]interface{}{
			"component": "postgres-store",
		}),
	}
}
