package analysis

import (
	"fmt"
	"strings"

	"github.com/flowpulse/flowpulse/internal/workflow"
)

// Substrings matched against ExecutionRecord.FailureReason. Matching is
// case-sensitive, and the checks are non-exclusive: one record may count
// toward several categories at once.
const (
	reasonTimeout    = "timeout"
	reasonConnection = "connection"
	reasonAPI        = "API"
	reasonRouting    = "routing"
)

// Policy holds the detector's tunable sensitivity. The thresholds are
// operator policy rather than derived facts, so they ship as configuration
// with the stock values below instead of as constants.
type Policy struct {
	// TimeoutRateThreshold is the fraction of the window that may time out
	// before a timeout issue is raised. Strictly above fires. Default 0.10.
	TimeoutRateThreshold float64 `json:"timeout_rate_threshold"`

	// DurationMultiplier is how many times the baseline the average duration
	// may reach before a regression issue is raised. Strictly above fires.
	// Default 2.0.
	DurationMultiplier float64 `json:"duration_multiplier"`
}

// DefaultPolicy returns the detector policy with stock thresholds.
func DefaultPolicy() Policy {
	return Policy{TimeoutRateThreshold: 0.10, DurationMultiplier: 2.0}
}

// tallies holds the per-category match counts one scan of the records
// produces; shared by the detector and the recommendation stats.
type tallies struct {
	timeouts        int
	apiFailures     int
	routingFailures int
	durationSum     float64
}

// tally scans the records once and counts matches per category.
func tally(records []workflow.ExecutionRecord) tallies {
	var t tallies
	for _, r := range records {
		if r.ErrorCode == workflow.ErrTimeout || strings.Contains(r.FailureReason, reasonTimeout) {
			t.timeouts++
		}
		if r.ErrorCode == workflow.ErrAPI ||
			strings.Contains(r.FailureReason, reasonConnection) ||
			strings.Contains(r.FailureReason, reasonAPI) {
			t.apiFailures++
		}
		if r.ErrorCode == workflow.ErrRouting || strings.Contains(r.FailureReason, reasonRouting) {
			t.routingFailures++
		}
		t.durationSum += r.Duration
	}
	return t
}

// DetectIssues scans one workflow's records for known failure patterns.
// Issues come back in the fixed check order (timeout rate, external calls,
// routing, duration regression), not sorted by severity; callers that want a
// severity ordering sort the result themselves. Empty input yields no issues
// and no error: zero matches cannot clear any threshold.
func DetectIssues(records []workflow.ExecutionRecord, baseline workflow.Baseline, pol Policy) ([]Issue, error) {
	if err := validateRecords(records); err != nil {
		return nil, err
	}

	total := len(records)
	if total == 0 {
		return nil, nil
	}

	t := tally(records)
	var issues []Issue

	if float64(t.timeouts) > pol.TimeoutRateThreshold*float64(total) {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Message: fmt.Sprintf("%d of the last %d executions timed out, above the %.0f%% threshold",
				t.timeouts, total, pol.TimeoutRateThreshold*100),
		})
	}

	if t.apiFailures > 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("%d executions failed calling external services", t.apiFailures),
		})
	}

	if t.routingFailures > 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("%d executions failed inside routing nodes", t.routingFailures),
		})
	}

	// Unmeasured durations stay in the denominator so the average covers the
	// same window as the completion rate.
	avg := t.durationSum / float64(total)
	if baseline.DurationSeconds > 0 && avg > pol.DurationMultiplier*baseline.DurationSeconds {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Message: fmt.Sprintf("average execution time is ~%.0f min, more than %gx the %.0f min baseline",
				avg/60, pol.DurationMultiplier, baseline.DurationSeconds/60),
		})
	}

	return issues, nil
}
