package api

import "github.com/flowpulse/flowpulse/internal/analysis"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State             string  `json:"state"`
	WorkflowCount     int     `json:"workflow_count"`
	HealthyCount      int     `json:"healthy_count"`
	WarningCount      int     `json:"warning_count"`
	CriticalCount     int     `json:"critical_count"`
	AvgCompletionRate float64 `json:"avg_completion_rate"`
	NotificationCount int     `json:"notification_count"`
}

// WorkflowSummary is one workflow entry in GET /api/v1/workflows and in the
// stream snapshot.
type WorkflowSummary struct {
	WorkflowID          string  `json:"workflow_id"`
	WorkflowName        string  `json:"workflow_name"`
	Status              string  `json:"status"`
	CompletionRate      float64 `json:"completion_rate"`
	Total               int     `json:"total"`
	Failed              int     `json:"failed"`
	IssueCount          int     `json:"issue_count"`
	RecommendationCount int     `json:"recommendation_count"`
	UpdatedAt           string  `json:"updated_at"` // RFC3339
}

// WorkflowResponse is the full report for GET /api/v1/workflows/{id}.
type WorkflowResponse struct {
	WorkflowID      string                    `json:"workflow_id"`
	WorkflowName    string                    `json:"workflow_name"`
	GeneratedAt     string                    `json:"generated_at"` // RFC3339
	UpdatedAt       string                    `json:"updated_at"`   // RFC3339
	Health          analysis.HealthResult     `json:"health"`
	Issues          []analysis.Issue          `json:"issues"`
	Recommendations []analysis.Recommendation `json:"recommendations"`
	Stats           analysis.Stats            `json:"stats"`
}

// IssueEntry is one issue attributed to its workflow in GET /api/v1/issues.
type IssueEntry struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`
	Severity     string `json:"severity"`
	Message      string `json:"message"`
}

// IssuesResponse is the payload for GET /api/v1/issues.
type IssuesResponse struct {
	Total        int          `json:"total"`
	ErrorCount   int          `json:"error_count"`
	WarningCount int          `json:"warning_count"`
	Issues       []IssueEntry `json:"issues"`
}

// SnapshotResponse is the fleet snapshot pushed to stream subscribers.
// Workflows carries the same entries as GET /api/v1/workflows.
type SnapshotResponse struct {
	Workflows   []WorkflowSummary `json:"workflows"`
	GeneratedAt string            `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
