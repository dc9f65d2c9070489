package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// evalCondition evaluates a rule condition against the merged stats.
//
// Supported expressions ("field op value", whitespace-separated):
//
//	completion_rate < 70
//	timeout_pct > 10
//	api_failure_count > 0
//	duration_ratio > 2
//	status == critical
//
// Returns (fires, value of the addressed field). A malformed expression or
// unknown field never fires; CheckCondition catches those at load time.
func evalCondition(cond string, st Stats) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "status" {
		if op != "==" {
			return false, 0
		}
		return string(st.Status) == rhs, 0
	}

	v, ok := numericField(field, st)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField resolves a condition field name to its value in the stats.
func numericField(field string, st Stats) (float64, bool) {
	switch field {
	case "completion_rate":
		return st.CompletionRate, true
	case "total":
		return float64(st.Total), true
	case "completed":
		return float64(st.Completed), true
	case "failed":
		return float64(st.Failed), true
	case "in_progress":
		return float64(st.InProgress), true
	case "timeout_count":
		return float64(st.TimeoutCount), true
	case "timeout_pct":
		return st.TimeoutPct, true
	case "api_failure_count":
		return float64(st.APIFailureCount), true
	case "routing_failure_count":
		return float64(st.RoutingFailureCount), true
	case "avg_duration_seconds":
		return st.AvgDurationSeconds, true
	case "baseline_seconds":
		return st.BaselineSeconds, true
	case "duration_ratio":
		return st.DurationRatio, true
	case "issue_count":
		return float64(st.IssueCount), true
	case "error_issue_count":
		return float64(st.ErrorIssueCount), true
	case "warning_issue_count":
		return float64(st.WarningIssueCount), true
	}
	return 0, false
}

func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}

// CheckCondition reports whether cond is a well-formed condition over known
// fields. Config loading calls this so a typo fails at startup instead of
// producing a rule that silently never fires.
func CheckCondition(cond string) error {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return fmt.Errorf("condition %q: want exactly \"field op value\"", cond)
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "status" {
		if op != "==" {
			return fmt.Errorf("condition %q: status supports only ==", cond)
		}
		switch HealthStatus(rhs) {
		case StatusHealthy, StatusWarning, StatusCritical:
			return nil
		}
		return fmt.Errorf("condition %q: unknown status %q", cond, rhs)
	}

	if _, ok := numericField(field, Stats{}); !ok {
		return fmt.Errorf("condition %q: unknown field %q", cond, field)
	}
	switch op {
	case ">", ">=", "<", "<=", "==":
	default:
		return fmt.Errorf("condition %q: unknown operator %q", cond, op)
	}
	if _, err := strconv.ParseFloat(rhs, 64); err != nil {
		return fmt.Errorf("condition %q: value %q is not numeric", cond, rhs)
	}
	return nil
}

// GenerateRecommendations evaluates every rule against the stats and returns
// the matches ordered critical first, low last. sort.SliceStable keeps rules
// of equal priority in table order, so the output is deterministic for a
// given table.
func GenerateRecommendations(st Stats, rules []Rule) []Recommendation {
	recs := make([]Recommendation, 0, len(rules))
	for _, rule := range rules {
		fires, _ := evalCondition(rule.Condition, st)
		if !fires {
			continue
		}
		recs = append(recs, Recommendation{
			Priority: rule.Priority,
			Action:   rule.Action,
			Impact:   rule.Impact,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
	return recs
}

// DefaultRules returns the stock recommendation table. The table is data on
// purpose: operators extend it in configuration without touching the
// evaluator or the sort.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:      "triage-failures",
			Condition: "completion_rate < 70",
			Priority:  PriorityCritical,
			Action:    "Pause the workflow and triage its recent failed executions",
			Impact:    "Stops the failure backlog from growing while the root cause is found",
		},
		{
			Name:      "check-external-services",
			Condition: "api_failure_count > 0",
			Priority:  PriorityHigh,
			Action:    "Verify credentials and availability of the external services this workflow calls",
			Impact:    "Restores executions that currently fail on outbound calls",
		},
		{
			Name:      "raise-timeouts",
			Condition: "timeout_pct > 10",
			Priority:  PriorityHigh,
			Action:    "Raise node timeout limits or split long-running steps into smaller nodes",
			Impact:    "Recovers executions currently lost to timeouts",
		},
		{
			Name:      "review-routing",
			Condition: "routing_failure_count > 0",
			Priority:  PriorityMedium,
			Action:    "Review conditional routing expressions for unhandled branches",
			Impact:    "Prevents executions from dead-ending in router nodes",
		},
		{
			Name:      "profile-slow-nodes",
			Condition: "duration_ratio > 2",
			Priority:  PriorityMedium,
			Action:    "Profile slow nodes and check recently changed steps for added latency",
			Impact:    "Brings execution time back toward the baseline",
		},
		{
			Name:      "add-error-handler",
			Condition: "failed > 0",
			Priority:  PriorityLow,
			Action:    "Attach an error-handler workflow to capture failure context automatically",
			Impact:    "Speeds up diagnosis of future failures",
		},
	}
}
