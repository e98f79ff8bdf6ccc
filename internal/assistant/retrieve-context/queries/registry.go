// internal/assistant/retrieve-context/queries/registry.go
package queries

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"garage-assistant/internal/models"
)

var (
	ErrUnknownTable     = errors.New("unknown table")
	ErrUnknownAggregate = errors.New("unknown aggregate")
	ErrInvalidFilter    = errors.New("invalid filter column")
)

// AggregateFunc computes one named figure over the garage tables.
type AggregateFunc func(ctx context.Context, db *sqlx.DB) (interface{}, error)

var Registry = map[models.AggregateName]AggregateFunc{
	models.AggregateTotalRevenue:      TotalRevenue,
	models.AggregateRepairsInProgress: RepairsInProgress,
	models.AggregateLowStockParts:     LowStockParts,
	models.AggregateMechanicCount:     MechanicCount,
}

// BoundTables maps a table to the aggregates computed whenever it is retrieved.
var BoundTables = map[string][]models.AggregateName{
	models.TableEmployees: {models.AggregateMechanicCount},
	models.TableInvoices:  {models.AggregateTotalRevenue},
	models.TableRepairs:   {models.AggregateRepairsInProgress},
	models.TableParts:     {models.AggregateLowStockParts},
}

func Aggregate(ctx context.Context, db *sqlx.DB, name models.AggregateName) (interface{}, error) {
	fn, exists := Registry[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAggregate, name)
	}
	return fn(ctx, db)
}
