package analysis

import (
	"errors"
	"fmt"

	"github.com/flowpulse/flowpulse/internal/workflow"
)

// Completion-rate thresholds in percent, evaluated high to low.
// Both boundaries are inclusive: exactly 95 is healthy, exactly 85 is warning.
const (
	ThresholdHealthy = 95.0
	ThresholdWarning = 85.0
)

// ErrNoRecords is returned when an evaluation runs over an empty record set.
// A completion rate over zero executions is undefined, so the evaluator
// refuses instead of inventing one; callers decide what "no data" means
// (the collector skips the workflow and keeps the previous report).
var ErrNoRecords = errors.New("analysis: no execution records")

// InvalidRecordError reports a record that breaks the input contract:
// an unrecognized status or a negative duration.
type InvalidRecordError struct {
	Index int    // position in the input slice
	Field string // "status" or "duration"
	Value string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("analysis: record %d has invalid %s %q", e.Index, e.Field, e.Value)
}

// validateRecords enforces the contract shared by EvaluateHealth and
// DetectIssues. The first bad record aborts the whole evaluation; a partial
// result over silently dropped records would misreport the rate.
func validateRecords(records []workflow.ExecutionRecord) error {
	for i, r := range records {
		if !r.Status.Valid() {
			return &InvalidRecordError{Index: i, Field: "status", Value: string(r.Status)}
		}
		if r.Duration < 0 {
			return &InvalidRecordError{Index: i, Field: "duration", Value: fmt.Sprintf("%g", r.Duration)}
		}
	}
	return nil
}

// EvaluateHealth reduces one workflow's execution records to a completion
// rate and a three-level status. Pure: the same input always yields the same
// result and the input slice is never mutated.
func EvaluateHealth(records []workflow.ExecutionRecord) (HealthResult, error) {
	if len(records) == 0 {
		return HealthResult{}, ErrNoRecords
	}
	if err := validateRecords(records); err != nil {
		return HealthResult{}, err
	}

	res := HealthResult{Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case workflow.StatusCompleted:
			res.Completed++
		case workflow.StatusFailed:
			res.Failed++
		case workflow.StatusInProgress:
			res.InProgress++
		}
	}

	res.CompletionRate = 100 * float64(res.Completed) / float64(res.Total)
	res.Status = statusFromRate(res.CompletionRate)
	return res, nil
}

// statusFromRate maps a completion rate to a status. Monotonic: a higher
// rate never yields a worse status.
func statusFromRate(rate float64) HealthStatus {
	switch {
	case rate >= ThresholdHealthy:
		return StatusHealthy
	case rate >= ThresholdWarning:
		return StatusWarning
	default:
		return StatusCritical
	}
}
