// internal/assistant/retrieve-context/queries/garage.go
package queries

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"garage-assistant/internal/models"
)

const (
	RoleMechanic         = "mecanicien"
	RepairStatusProgress = "en_cours"
)

// Predicate is a single equality filter. Column must be whitelisted for the table.
type Predicate struct {
	Column string
	Value  interface{}
}

// filterColumns whitelists the columns Count may filter on.
var filterColumns = map[string][]string{
	models.TableEmployees:    {"role", "status"},
	models.TableRepairs:      {"status", "mechanic_id"},
	models.TableInvoices:     {"status"},
	models.TableAppointments: {"status"},
	models.TableVehicles:     {"brand"},
	models.TableParts:        {"category"},
	models.TableServices:     {"category"},
	models.TableClients:      {"city"},
}

// hiddenColumns never leave the store.
var hiddenColumns = map[string]bool{
	"password":      true,
	"password_hash": true,
	"token":         true,
	"api_key":       true,
}

func Count(ctx context.Context, db *sqlx.DB, table string, pred *Predicate) (int64, error) {
	if !models.IsKnownTable(table) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	query := "SELECT COUNT(*) FROM " + table
	var args []interface{}
	if pred != nil {
		if !allowedFilter(table, pred.Column) {
			return 0, fmt.Errorf("%w: %s.%s", ErrInvalidFilter, table, pred.Column)
		}
		query += " WHERE " + pred.Column + " = $1"
		args = append(args, pred.Value)
	}

	var n int64
	if err := db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func List(ctx context.Context, db *sqlx.DB, table string, limit int) ([]map[string]interface{}, error) {
	if !models.IsKnownTable(table) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	rows, err := db.QueryxContext(ctx, "SELECT * FROM "+table+" ORDER BY id LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		out = append(out, cleanRow(row))
	}
	return out, rows.Err()
}

func MechanicCount(ctx context.Context, db *sqlx.DB) (interface{}, error) {
	return Count(ctx, db, models.TableEmployees, &Predicate{Column: "role", Value: RoleMechanic})
}

func RepairsInProgress(ctx context.Context, db *sqlx.DB) (interface{}, error) {
	return Count(ctx, db, models.TableRepairs, &Predicate{Column: "status", Value: RepairStatusProgress})
}

func TotalRevenue(ctx context.Context, db *sqlx.DB) (interface{}, error) {
	var total float64
	if err := db.GetContext(ctx, &total, "SELECT COALESCE(SUM(amount), 0) FROM invoices"); err != nil {
		return nil, err
	}
	return total, nil
}

func LowStockParts(ctx context.Context, db *sqlx.DB) (interface{}, error) {
	var n int64
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM parts WHERE quantity <= min_quantity"); err != nil {
		return nil, err
	}
	return n, nil
}

func allowedFilter(table, column string) bool {
	for _, c := range filterColumns[table] {
		if c == column {
			return true
		}
	}
	return false
}

func cleanRow(row map[string]interface{}) map[string]interface{} {
	for k, v := range row {
		if hiddenColumns[strings.ToLower(k)] {
			delete(row, k)
			continue
		}
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
	return row
}
