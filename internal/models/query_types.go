// internal/models/query_types.go
package models

// AggregateName identifies one of the fixed record-store calculations.
type AggregateName string

const (
	AggregateTotalRevenue      AggregateName = "total_revenue"
	AggregateRepairsInProgress AggregateName = "repairs_in_progress"
	AggregateLowStockParts     AggregateName = "low_stock_parts"
	AggregateMechanicCount     AggregateName = "mechanic_count"
)

// Record kinds carried by ContextRecord.Kind.
const (
	RecordKindCount     = "count"
	RecordKindAggregate = "aggregate"
	RecordKindRow       = "row"
	RecordKindDocument  = "document"
)

// Garage tables the assistant may read.
const (
	TableClients      = "clients"
	TableEmployees    = "employees"
	TableVehicles     = "vehicles"
	TableRepairs      = "repairs"
	TableInvoices     = "invoices"
	TableParts        = "parts"
	TableAppointments = "appointments"
	TableServices     = "services"
)

// Tables lists every readable table in a stable order.
var Tables = []string{
	TableClients,
	TableEmployees,
	TableVehicles,
	TableRepairs,
	TableInvoices,
	TableParts,
	TableAppointments,
	TableServices,
}

// IsKnownTable reports whether name is one of Tables.
func IsKnownTable(name string) bool {
	for _, t := range Tables {
		if t == name {
			return true
		}
	}
	return false
}
