// Package api implements the HTTP REST API for flowpulse.
//
// New(store, notifier) returns an http.Handler that serves:
//
//	GET /api/v1/health          fleet state, per-status counts, avg completion rate
//	GET /api/v1/workflows       all live workflow reports, summarized ([]WorkflowSummary)
//	GET /api/v1/workflows/{id}  full report for one workflow; 404 if unknown or stale
//	GET /api/v1/issues          issues aggregated across live reports, with counts
//	GET /api/v1/notifications   firing plus recently resolved notifications
//
// Metrics(registry) returns the GET /metrics handler, rendering the counter
// registry in Prometheus text exposition format.
//
// All JSON endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Read live entries from the store (stale entries excluded from lists)
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
