// Package analysis turns a window of execution records into a health report:
// a completion-rate evaluation, a set of detected issues, and prioritized
// recommendations from a declarative rule table.
//
// Everything here is pure. The three stages share no state, never mutate
// their input, and fail fast on malformed records, which keeps the collector
// free to run them concurrently per workflow.
package analysis
