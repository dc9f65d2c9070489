package analysis

import (
	"time"

	"github.com/flowpulse/flowpulse/internal/workflow"
)

// Stats is the flat, merged view rule conditions address by field name:
// health counts, issue tallies and duration figures for one workflow.
// numericField in rules.go is the authoritative list of addressable fields.
type Stats struct {
	WorkflowID          string       `json:"workflow_id"`
	Status              HealthStatus `json:"status"`
	CompletionRate      float64      `json:"completion_rate"`
	Total               int          `json:"total"`
	Completed           int          `json:"completed"`
	Failed              int          `json:"failed"`
	InProgress          int          `json:"in_progress"`
	TimeoutCount        int          `json:"timeout_count"`
	TimeoutPct          float64      `json:"timeout_pct"`
	APIFailureCount     int          `json:"api_failure_count"`
	RoutingFailureCount int          `json:"routing_failure_count"`
	AvgDurationSeconds  float64      `json:"avg_duration_seconds"`
	BaselineSeconds     float64      `json:"baseline_seconds"`
	DurationRatio       float64      `json:"duration_ratio"`
	IssueCount          int          `json:"issue_count"`
	ErrorIssueCount     int          `json:"error_issue_count"`
	WarningIssueCount   int          `json:"warning_issue_count"`
}

// ReportInput carries everything one report derivation needs. At is the
// report timestamp, passed in so callers and tests control the clock.
type ReportInput struct {
	Definition workflow.Definition
	Baseline   workflow.Baseline
	Records    []workflow.ExecutionRecord
	At         time.Time
}

// Report bundles the three stage outputs for one workflow.
type Report struct {
	WorkflowID      string           `json:"workflow_id"`
	WorkflowName    string           `json:"workflow_name"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Health          HealthResult     `json:"health"`
	Issues          []Issue          `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
	Stats           Stats            `json:"stats"`
}

// BuildReport runs the full pipeline over one workflow's window: health
// evaluation and issue detection independently over the same records, then
// the recommendation rules over the merged stats. Pure and stateless, so
// concurrent calls for different workflows are safe.
func BuildReport(in ReportInput, pol Policy, rules []Rule) (*Report, error) {
	health, err := EvaluateHealth(in.Records)
	if err != nil {
		return nil, err
	}
	issues, err := DetectIssues(in.Records, in.Baseline, pol)
	if err != nil {
		return nil, err
	}

	st := buildStats(in, health, issues)
	recs := GenerateRecommendations(st, rules)

	return &Report{
		WorkflowID:      in.Definition.ID,
		WorkflowName:    in.Definition.Name,
		GeneratedAt:     in.At,
		Health:          health,
		Issues:          issues,
		Recommendations: recs,
		Stats:           st,
	}, nil
}

// buildStats flattens the stage outputs into the object conditions evaluate
// against. Only called after EvaluateHealth succeeded, so Total >= 1.
func buildStats(in ReportInput, health HealthResult, issues []Issue) Stats {
	t := tally(in.Records)
	total := float64(health.Total)

	st := Stats{
		WorkflowID:          in.Definition.ID,
		Status:              health.Status,
		CompletionRate:      health.CompletionRate,
		Total:               health.Total,
		Completed:           health.Completed,
		Failed:              health.Failed,
		InProgress:          health.InProgress,
		TimeoutCount:        t.timeouts,
		TimeoutPct:          100 * float64(t.timeouts) / total,
		APIFailureCount:     t.apiFailures,
		RoutingFailureCount: t.routingFailures,
		AvgDurationSeconds:  t.durationSum / total,
		BaselineSeconds:     in.Baseline.DurationSeconds,
		IssueCount:          len(issues),
	}
	if in.Baseline.DurationSeconds > 0 {
		st.DurationRatio = st.AvgDurationSeconds / in.Baseline.DurationSeconds
	}
	for _, is := range issues {
		switch is.Severity {
		case SeverityError:
			st.ErrorIssueCount++
		case SeverityWarning:
			st.WarningIssueCount++
		}
	}
	return st
}
