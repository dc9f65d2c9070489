package analysis

import (
	"errors"
	"strings"
	"testing"

	"github.com/flowpulse/flowpulse/internal/workflow"
)

func baseline(seconds float64) workflow.Baseline {
	return workflow.Baseline{DurationSeconds: seconds}
}

// --- Timeout rate check ---

func TestDetectIssues_TimeoutRate(t *testing.T) {
	tests := []struct {
		name     string
		timeouts int
		total    int
		want     bool
	}{
		{"2 of 10 is above 10%", 2, 10, true},
		{"exactly 10% does not fire", 1, 10, false},
		{"zero timeouts", 0, 10, false},
		{"3 of 30 is exactly 10%", 3, 30, false},
		{"4 of 30 fires", 4, 30, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			records := mkRecords(tc.total-tc.timeouts, 0, 0)
			for i := 0; i < tc.timeouts; i++ {
				records = append(records, rec(workflow.StatusFailed, workflow.ErrTimeout, "", 0))
			}

			issues, err := DetectIssues(records, baseline(0), DefaultPolicy())
			if err != nil {
				t.Fatalf("DetectIssues: %v", err)
			}
			if got := len(issues) == 1; got != tc.want {
				t.Fatalf("fired = %v, want %v (issues=%v)", got, tc.want, issues)
			}
			if tc.want {
				if issues[0].Severity != SeverityWarning {
					t.Errorf("Severity = %q, want %q", issues[0].Severity, SeverityWarning)
				}
				if !strings.Contains(issues[0].Message, "timed out") {
					t.Errorf("Message %q should mention timeouts", issues[0].Message)
				}
			}
		})
	}
}

func TestDetectIssues_TimeoutMessageEmbedsCounts(t *testing.T) {
	records := mkRecords(8, 0, 0)
	records = append(records,
		rec(workflow.StatusFailed, workflow.ErrTimeout, "", 0),
		rec(workflow.StatusFailed, workflow.ErrNone, "timeout waiting for webhook", 0),
	)

	issues, err := DetectIssues(records, baseline(0), DefaultPolicy())
	if err != nil {
		t.Fatalf("DetectIssues: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %v, want exactly the timeout warning", issues)
	}
	if !strings.Contains(issues[0].Message, "2 of the last 10") {
		t.Errorf("Message = %q, want the 2/10 counts embedded", issues[0].Message)
	}
}

func TestDetectIssues_CustomTimeoutThreshold(t *testing.T) {
	pol := DefaultPolicy()
	pol.TimeoutRateThreshold = 0.5

	records := mkRecords(6, 0, 0)
	for i := 0; i < 4; i++ {
		records = append(records, rec(workflow.StatusFailed, workflow.ErrTimeout, "", 0))
	}
	issues, err := DetectIssues(records, baseline(0), pol)
	if err != nil {
		t.Fatalf("DetectIssues: %v", err)
	}
	// 4 of 10 is under the 50% policy.
	if len(issues) != 0 {
		t.Fatalf("issues = %v, want none under the relaxed threshold", issues)
	}
}

// --- Reason matching ---

func TestDetectIssues_ReasonMatching(t *testing.T) {
	tests := []struct {
		name     string
		record   workflow.ExecutionRecord
		wantSev  Severity
		wantPart string
		none     bool
	}{
		{
			name:     "connection reason counts as external failure",
			record:   rec(workflow.StatusFailed, workflow.ErrNone, "connection refused by host", 0),
			wantSev:  SeverityError,
			wantPart: "external services",
		},
		{
			name:     "API reason counts as external failure",
			record:   rec(workflow.StatusFailed, workflow.ErrNone, "API rate limit exceeded", 0),
			wantSev:  SeverityError,
			wantPart: "external services",
		},
		{
			name:     "api_error code counts without any reason text",
			record:   rec(workflow.StatusFailed, workflow.ErrAPI, "", 0),
			wantSev:  SeverityError,
			wantPart: "external services",
		},
		{
			name:     "routing reason counts as routing failure",
			record:   rec(workflow.StatusFailed, workflow.ErrNone, "no routing branch matched", 0),
			wantSev:  SeverityError,
			wantPart: "routing nodes",
		},
		{
			name:     "routing_error code counts",
			record:   rec(workflow.StatusFailed, workflow.ErrRouting, "", 0),
			wantSev:  SeverityError,
			wantPart: "routing nodes",
		},
		{
			name:   "matching is case-sensitive",
			record: rec(workflow.StatusFailed, workflow.ErrNone, "Connection Refused", 0),
			none:   true,
		},
		{
			name:   "lowercase api does not match",
			record: rec(workflow.StatusFailed, workflow.ErrNone, "api backend gone", 0),
			none:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			records := append(mkRecords(9, 0, 0), tc.record)
			issues, err := DetectIssues(records, baseline(0), DefaultPolicy())
			if err != nil {
				t.Fatalf("DetectIssues: %v", err)
			}
			if tc.none {
				if len(issues) != 0 {
					t.Fatalf("issues = %v, want none", issues)
				}
				return
			}
			if len(issues) != 1 {
				t.Fatalf("issues = %v, want exactly one", issues)
			}
			if issues[0].Severity != tc.wantSev {
				t.Errorf("Severity = %q, want %q", issues[0].Severity, tc.wantSev)
			}
			if !strings.Contains(issues[0].Message, tc.wantPart) {
				t.Errorf("Message = %q, want it to contain %q", issues[0].Message, tc.wantPart)
			}
		})
	}
}

func TestDetectIssues_OverlappingCategories(t *testing.T) {
	// One record can count toward several categories.
	records := []workflow.ExecutionRecord{
		rec(workflow.StatusFailed, workflow.ErrNone, "timeout during API call", 0),
	}
	issues, err := DetectIssues(records, baseline(0), DefaultPolicy())
	if err != nil {
		t.Fatalf("DetectIssues: %v", err)
	}
	// 1 of 1 timed out (100% > 10%) and the same record is an API failure.
	if len(issues) != 2 {
		t.Fatalf("issues = %v, want timeout warning plus external-failure error", issues)
	}
	if issues[0].Severity != SeverityWarning || issues[1].Severity != SeverityError {
		t.Errorf("severities = %q/%q, want warning then error", issues[0].Severity, issues[1].Severity)
	}
}

// --- Duration regression check ---

func TestDetectIssues_DurationRegression(t *testing.T) {
	mk := func(n int, dur float64) []workflow.ExecutionRecord {
		out := make([]workflow.ExecutionRecord, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, rec(workflow.StatusCompleted, workflow.ErrNone, "", dur))
		}
		return out
	}

	t.Run("average five minutes against two minute baseline", func(t *testing.T) {
		issues, err := DetectIssues(mk(20, 300), baseline(120), DefaultPolicy())
		if err != nil {
			t.Fatalf("DetectIssues: %v", err)
		}
		if len(issues) != 1 {
			t.Fatalf("issues = %v, want exactly the regression warning", issues)
		}
		if issues[0].Severity != SeverityWarning {
			t.Errorf("Severity = %q, want %q", issues[0].Severity, SeverityWarning)
		}
		if !strings.Contains(issues[0].Message, "~5 min") {
			t.Errorf("Message = %q, want the rounded ~5 min average", issues[0].Message)
		}
		if !strings.Contains(issues[0].Message, "2x") {
			t.Errorf("Message = %q, want the 2x multiplier", issues[0].Message)
		}
	})

	t.Run("exactly twice the baseline does not fire", func(t *testing.T) {
		issues, err := DetectIssues(mk(10, 240), baseline(120), DefaultPolicy())
		if err != nil {
			t.Fatalf("DetectIssues: %v", err)
		}
		if len(issues) != 0 {
			t.Fatalf("issues = %v, want none at exactly 2x", issues)
		}
	})

	t.Run("no baseline disables the check", func(t *testing.T) {
		issues, err := DetectIssues(mk(10, 100000), baseline(0), DefaultPolicy())
		if err != nil {
			t.Fatalf("DetectIssues: %v", err)
		}
		if len(issues) != 0 {
			t.Fatalf("issues = %v, want none without a baseline", issues)
		}
	})

	t.Run("unmeasured durations stay in the denominator", func(t *testing.T) {
		// 5 records at 300s plus 5 unmeasured: avg = 1500/10 = 150 < 240.
		records := append(mk(5, 300), mk(5, 0)...)
		issues, err := DetectIssues(records, baseline(120), DefaultPolicy())
		if err != nil {
			t.Fatalf("DetectIssues: %v", err)
		}
		if len(issues) != 0 {
			t.Fatalf("issues = %v, want none with the diluted average", issues)
		}
	})
}

// --- Ordering, empties, invalid input ---

func TestDetectIssues_CheckOrderIsFixed(t *testing.T) {
	// Fire all four checks at once and verify the fixed order:
	// timeouts, external calls, routing, duration.
	records := []workflow.ExecutionRecord{
		rec(workflow.StatusFailed, workflow.ErrTimeout, "", 150),
		rec(workflow.StatusFailed, workflow.ErrTimeout, "", 150),
		rec(workflow.StatusFailed, workflow.ErrNone, "connection reset", 150),
		rec(workflow.StatusFailed, workflow.ErrRouting, "", 150),
		rec(workflow.StatusCompleted, workflow.ErrNone, "", 150),
		rec(workflow.StatusCompleted, workflow.ErrNone, "", 150),
	}

	issues, err := DetectIssues(records, baseline(60), DefaultPolicy())
	if err != nil {
		t.Fatalf("DetectIssues: %v", err)
	}
	if len(issues) != 4 {
		t.Fatalf("issues = %d, want 4: %v", len(issues), issues)
	}

	wantParts := []string{"timed out", "external services", "routing nodes", "average execution time"}
	for i, part := range wantParts {
		if !strings.Contains(issues[i].Message, part) {
			t.Errorf("issue[%d] = %q, want it to contain %q", i, issues[i].Message, part)
		}
	}
}

func TestDetectIssues_EmptyInput(t *testing.T) {
	issues, err := DetectIssues(nil, baseline(120), DefaultPolicy())
	if err != nil {
		t.Fatalf("empty input should not error, got %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("issues = %v, want none", issues)
	}
}

func TestDetectIssues_InvalidRecord(t *testing.T) {
	records := []workflow.ExecutionRecord{
		rec(workflow.StatusCompleted, workflow.ErrNone, "", 10),
		rec(workflow.Status("bogus"), workflow.ErrNone, "", 10),
	}
	issues, err := DetectIssues(records, baseline(0), DefaultPolicy())
	var ire *InvalidRecordError
	if !errors.As(err, &ire) {
		t.Fatalf("err = %v, want *InvalidRecordError", err)
	}
	if issues != nil {
		t.Errorf("issues = %v, want nil alongside the error", issues)
	}
	if ire.Index != 1 {
		t.Errorf("Index = %d, want 1", ire.Index)
	}
}
