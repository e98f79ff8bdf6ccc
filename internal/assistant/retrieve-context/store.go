// internal/assistant/retrieve-context/store.go
package retrievecontext

import (
	"context"

	"github.com/jmoiron/sqlx"

	"garage-assistant/internal/assistant/retrieve-context/queries"
	"garage-assistant/internal/models"
)

// PostgresStore reads the garage tables through whitelisted queries only.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Count(ctx context.Context, table string, pred *Predicate) (int64, error) {
	return queries.Count(ctx, s.db, table, pred)
}

func (s *PostgresStore) List(ctx context.Context, table string, limit int) ([]map[string]interface{}, error) {
	return queries.List(ctx, s.db, table, limit)
}

func (s *PostgresStore) Aggregate(ctx context.Context, name models.AggregateName) (interface{}, error) {
	return queries.Aggregate(ctx, s.db, name)
}
