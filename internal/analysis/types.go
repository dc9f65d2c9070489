package analysis

// HealthStatus classifies a workflow by its completion rate.
type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusWarning  HealthStatus = "warning"
	StatusCritical HealthStatus = "critical"
)

// Severity grades one diagnostic finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Priority orders recommendations. The total order is
// critical < high < medium < low, so critical sorts first.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// priorityRank maps each priority to its position in the total order.
// Lower value sorts earlier.
var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Valid reports whether p is a recognized priority.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// HealthResult is the output of the health evaluator for one workflow.
// Status is a pure function of CompletionRate; the counts satisfy
// Completed+Failed+InProgress <= Total (cancelled executions count toward
// the total only).
type HealthResult struct {
	Status         HealthStatus `json:"status"`
	CompletionRate float64      `json:"completion_rate"`
	Total          int          `json:"total"`
	Completed      int          `json:"completed"`
	Failed         int          `json:"failed"`
	InProgress     int          `json:"in_progress"`
}

// Issue is one diagnostic finding. Message always embeds the counts or ratio
// that triggered the finding, never a static label.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Recommendation is one ranked, human-actionable suggestion.
type Recommendation struct {
	Priority Priority `json:"priority"`
	Action   string   `json:"action"`
	Impact   string   `json:"impact"`
}

// Rule is one row of the recommendation table: a declarative condition over
// Stats plus the recommendation it produces when the condition holds.
// Condition syntax is documented on evalCondition in rules.go.
type Rule struct {
	Name      string
	Condition string
	Priority  Priority
	Action    string
	Impact    string
}
