package analysis

import (
	"strings"
	"testing"
)

// --- evalCondition ---

func TestEvalCondition(t *testing.T) {
	st := Stats{
		Status:              StatusCritical,
		CompletionRate:      62.5,
		Total:               16,
		Failed:              6,
		TimeoutCount:        3,
		TimeoutPct:          18.75,
		APIFailureCount:     2,
		RoutingFailureCount: 0,
		AvgDurationSeconds:  30,
		BaselineSeconds:     10,
		DurationRatio:       3,
		IssueCount:          3,
	}

	tests := []struct {
		cond string
		want bool
	}{
		{"completion_rate < 70", true},
		{"completion_rate < 60", false},
		{"completion_rate >= 62.5", true},
		{"timeout_pct > 10", true},
		{"timeout_pct > 20", false},
		{"api_failure_count > 0", true},
		{"routing_failure_count > 0", false},
		{"duration_ratio > 2", true},
		{"duration_ratio <= 3", true},
		{"failed == 6", true},
		{"issue_count >= 3", true},
		{"status == critical", true},
		{"status == healthy", false},
		// Malformed or unknown expressions never fire.
		{"completion_rate <", false},
		{"nonsense > 1", false},
		{"completion_rate >> 1", false},
		{"completion_rate < abc", false},
		{"status != critical", false},
	}

	for _, tc := range tests {
		t.Run(tc.cond, func(t *testing.T) {
			got, _ := evalCondition(tc.cond, st)
			if got != tc.want {
				t.Errorf("evalCondition(%q) = %v, want %v", tc.cond, got, tc.want)
			}
		})
	}
}

func TestEvalCondition_ReturnsFieldValue(t *testing.T) {
	st := Stats{TimeoutPct: 25}
	fired, v := evalCondition("timeout_pct > 10", st)
	if !fired {
		t.Fatal("condition should fire")
	}
	if v != 25 {
		t.Errorf("value = %v, want 25", v)
	}
}

// --- CheckCondition ---

func TestCheckCondition(t *testing.T) {
	valid := []string{
		"completion_rate < 70",
		"timeout_pct > 10",
		"failed >= 1",
		"status == warning",
		"duration_ratio == 2.5",
	}
	for _, cond := range valid {
		if err := CheckCondition(cond); err != nil {
			t.Errorf("CheckCondition(%q) = %v, want nil", cond, err)
		}
	}

	invalid := []struct {
		cond    string
		wantErr string
	}{
		{"completion_rate <", "field op value"},
		{"completion_rate < 70 extra", "field op value"},
		{"nonsense > 1", "unknown field"},
		{"completion_rate >> 1", "unknown operator"},
		{"completion_rate < abc", "not numeric"},
		{"status > critical", "only =="},
		{"status == broken", "unknown status"},
	}
	for _, tc := range invalid {
		err := CheckCondition(tc.cond)
		if err == nil {
			t.Errorf("CheckCondition(%q) = nil, want error", tc.cond)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("CheckCondition(%q) = %q, want it to mention %q", tc.cond, err, tc.wantErr)
		}
	}
}

// --- GenerateRecommendations ---

func TestGenerateRecommendations_PrioritySort(t *testing.T) {
	// Three matching rules in mixed table order. The output must come back
	// critical first, and equal priorities must keep their table order.
	rules := []Rule{
		{Name: "h1", Condition: "failed > 0", Priority: PriorityHigh, Action: "high one"},
		{Name: "c1", Condition: "total > 0", Priority: PriorityCritical, Action: "critical one"},
		{Name: "c2", Condition: "completed > 0", Priority: PriorityCritical, Action: "critical two"},
		{Name: "miss", Condition: "timeout_pct > 99", Priority: PriorityLow, Action: "never"},
	}
	st := Stats{Total: 10, Completed: 5, Failed: 5}

	recs := GenerateRecommendations(st, rules)
	if len(recs) != 3 {
		t.Fatalf("recs = %d, want 3: %+v", len(recs), recs)
	}

	wantActions := []string{"critical one", "critical two", "high one"}
	for i, want := range wantActions {
		if recs[i].Action != want {
			t.Errorf("recs[%d].Action = %q, want %q", i, recs[i].Action, want)
		}
	}
}

func TestGenerateRecommendations_AllPriorities(t *testing.T) {
	rules := []Rule{
		{Condition: "total > 0", Priority: PriorityLow, Action: "low"},
		{Condition: "total > 0", Priority: PriorityMedium, Action: "medium"},
		{Condition: "total > 0", Priority: PriorityHigh, Action: "high"},
		{Condition: "total > 0", Priority: PriorityCritical, Action: "critical"},
	}
	recs := GenerateRecommendations(Stats{Total: 1}, rules)

	want := []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}
	if len(recs) != len(want) {
		t.Fatalf("recs = %d, want %d", len(recs), len(want))
	}
	for i, p := range want {
		if recs[i].Priority != p {
			t.Errorf("recs[%d].Priority = %q, want %q", i, recs[i].Priority, p)
		}
	}
}

func TestGenerateRecommendations_NoMatches(t *testing.T) {
	recs := GenerateRecommendations(Stats{}, DefaultRules())
	if len(recs) != 0 {
		t.Errorf("recs on zero stats = %+v, want none", recs)
	}
}

func TestGenerateRecommendations_Deterministic(t *testing.T) {
	st := Stats{
		Status:          StatusCritical,
		CompletionRate:  50,
		Total:           10,
		Failed:          5,
		TimeoutPct:      30,
		APIFailureCount: 2,
		DurationRatio:   4,
	}
	first := GenerateRecommendations(st, DefaultRules())
	for i := 0; i < 10; i++ {
		again := GenerateRecommendations(st, DefaultRules())
		if len(again) != len(first) {
			t.Fatalf("run %d: len %d, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: recs[%d] = %+v, want %+v", i, j, again[j], first[j])
			}
		}
	}
}

// --- DefaultRules ---

func TestDefaultRules_AllValid(t *testing.T) {
	for _, r := range DefaultRules() {
		if r.Name == "" {
			t.Errorf("rule with empty name: %+v", r)
		}
		if err := CheckCondition(r.Condition); err != nil {
			t.Errorf("rule %q: %v", r.Name, err)
		}
		if !r.Priority.Valid() {
			t.Errorf("rule %q: invalid priority %q", r.Name, r.Priority)
		}
		if r.Action == "" || r.Impact == "" {
			t.Errorf("rule %q: empty action or impact", r.Name)
		}
	}
}

func TestDefaultRules_LowCompletionIsCritical(t *testing.T) {
	st := Stats{Status: StatusCritical, CompletionRate: 50, Total: 10, Completed: 5, Failed: 5}

	recs := GenerateRecommendations(st, DefaultRules())
	if len(recs) == 0 {
		t.Fatal("want at least the triage recommendation")
	}
	if recs[0].Priority != PriorityCritical {
		t.Errorf("recs[0].Priority = %q, want %q", recs[0].Priority, PriorityCritical)
	}
	if !strings.Contains(recs[0].Action, "triage") {
		t.Errorf("recs[0].Action = %q, want the triage action first", recs[0].Action)
	}
}
