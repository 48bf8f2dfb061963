package shared

// Reporting permissions checked by the report routes. reports.admin implies
// the other two only where a route lists it.
const (
	PermReportsView   = "reports.view"
	PermReportsExport = "reports.export"
	PermReportsAdmin  = "reports.admin"
)
