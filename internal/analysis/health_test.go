package analysis

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/flowpulse/flowpulse/internal/workflow"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// rec builds a single execution record.
func rec(status workflow.Status, code workflow.ErrorCode, reason string, dur float64) workflow.ExecutionRecord {
	return workflow.ExecutionRecord{
		Status:        status,
		ErrorCode:     code,
		FailureReason: reason,
		Duration:      dur,
	}
}

// mkRecords builds completed+failed+inProgress records with zero durations.
func mkRecords(completed, failed, inProgress int) []workflow.ExecutionRecord {
	var out []workflow.ExecutionRecord
	for i := 0; i < completed; i++ {
		out = append(out, rec(workflow.StatusCompleted, workflow.ErrNone, "", 0))
	}
	for i := 0; i < failed; i++ {
		out = append(out, rec(workflow.StatusFailed, workflow.ErrNone, "step failed", 0))
	}
	for i := 0; i < inProgress; i++ {
		out = append(out, rec(workflow.StatusInProgress, workflow.ErrNone, "", 0))
	}
	return out
}

// --- EvaluateHealth() table-driven tests ---

func TestEvaluateHealth_States(t *testing.T) {
	tests := []struct {
		name       string
		records    []workflow.ExecutionRecord
		wantStatus HealthStatus
		wantRate   float64
	}{
		{
			name:       "19 of 20 completed is healthy",
			records:    mkRecords(19, 1, 0),
			wantStatus: StatusHealthy,
			wantRate:   95.0,
		},
		{
			name:       "17 of 20 completed is warning",
			records:    mkRecords(17, 2, 1),
			wantStatus: StatusWarning,
			wantRate:   85.0,
		},
		{
			name:       "all completed",
			records:    mkRecords(10, 0, 0),
			wantStatus: StatusHealthy,
			wantRate:   100.0,
		},
		{
			name:       "all failed",
			records:    mkRecords(0, 10, 0),
			wantStatus: StatusCritical,
			wantRate:   0.0,
		},
		{
			name:       "just below warning threshold",
			records:    mkRecords(84, 16, 0),
			wantStatus: StatusCritical,
			wantRate:   84.0,
		},
		{
			name:       "in-progress drags the rate down",
			records:    mkRecords(9, 0, 1),
			wantStatus: StatusWarning,
			wantRate:   90.0,
		},
		{
			name:       "single completed record",
			records:    mkRecords(1, 0, 0),
			wantStatus: StatusHealthy,
			wantRate:   100.0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateHealth(tc.records)
			if err != nil {
				t.Fatalf("EvaluateHealth: %v", err)
			}
			if got.Status != tc.wantStatus {
				t.Errorf("Status = %q, want %q (rate=%.2f)", got.Status, tc.wantStatus, got.CompletionRate)
			}
			if !almostEqual(got.CompletionRate, tc.wantRate, 0.001) {
				t.Errorf("CompletionRate = %.4f, want %.4f", got.CompletionRate, tc.wantRate)
			}
		})
	}
}

func TestEvaluateHealth_Counts(t *testing.T) {
	records := mkRecords(5, 2, 1)
	records = append(records, rec(workflow.StatusCancelled, workflow.ErrNone, "", 0))

	got, err := EvaluateHealth(records)
	if err != nil {
		t.Fatalf("EvaluateHealth: %v", err)
	}

	if got.Total != 9 {
		t.Errorf("Total = %d, want 9", got.Total)
	}
	if got.Completed != 5 || got.Failed != 2 || got.InProgress != 1 {
		t.Errorf("counts = %d/%d/%d, want 5/2/1", got.Completed, got.Failed, got.InProgress)
	}
	// Cancelled counts toward the total only.
	if sum := got.Completed + got.Failed + got.InProgress; sum > got.Total {
		t.Errorf("count sum %d exceeds total %d", sum, got.Total)
	}
	// Rate uses the full window as denominator: 5/9.
	wantRate := 5.0 / 9.0 * 100
	if !almostEqual(got.CompletionRate, wantRate, 0.001) {
		t.Errorf("CompletionRate = %.4f, want %.4f", got.CompletionRate, wantRate)
	}
}

func TestEvaluateHealth_EmptyInput(t *testing.T) {
	_, err := EvaluateHealth(nil)
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("err = %v, want ErrNoRecords", err)
	}
	_, err = EvaluateHealth([]workflow.ExecutionRecord{})
	if !errors.Is(err, ErrNoRecords) {
		t.Fatalf("err on empty slice = %v, want ErrNoRecords", err)
	}
}

func TestEvaluateHealth_InvalidRecords(t *testing.T) {
	t.Run("unknown status", func(t *testing.T) {
		records := mkRecords(2, 0, 0)
		records = append(records, rec(workflow.Status("exploded"), workflow.ErrNone, "", 0))

		_, err := EvaluateHealth(records)
		var ire *InvalidRecordError
		if !errors.As(err, &ire) {
			t.Fatalf("err = %v, want *InvalidRecordError", err)
		}
		if ire.Index != 2 || ire.Field != "status" {
			t.Errorf("InvalidRecordError = %+v, want Index=2 Field=status", ire)
		}
	})

	t.Run("negative duration", func(t *testing.T) {
		records := []workflow.ExecutionRecord{
			rec(workflow.StatusCompleted, workflow.ErrNone, "", -1.5),
		}
		_, err := EvaluateHealth(records)
		var ire *InvalidRecordError
		if !errors.As(err, &ire) {
			t.Fatalf("err = %v, want *InvalidRecordError", err)
		}
		if ire.Field != "duration" {
			t.Errorf("Field = %q, want %q", ire.Field, "duration")
		}
	})
}

func TestEvaluateHealth_PureAndIdempotent(t *testing.T) {
	records := mkRecords(7, 2, 1)
	before := make([]workflow.ExecutionRecord, len(records))
	copy(before, records)

	first, err := EvaluateHealth(records)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := EvaluateHealth(records)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ across calls: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(records, before) {
		t.Errorf("input slice was mutated")
	}
}

func TestEvaluateHealth_RateInRange(t *testing.T) {
	// Property: rate stays in [0,100] for any count mix.
	cases := [][3]int{{0, 1, 0}, {1, 0, 0}, {3, 3, 3}, {50, 1, 0}, {0, 0, 7}}
	for _, c := range cases {
		got, err := EvaluateHealth(mkRecords(c[0], c[1], c[2]))
		if err != nil {
			t.Fatalf("EvaluateHealth(%v): %v", c, err)
		}
		if got.CompletionRate < 0 || got.CompletionRate > 100 {
			t.Errorf("rate %.4f out of [0,100] for counts %v", got.CompletionRate, c)
		}
	}
}

func TestEvaluateHealth_Monotonic(t *testing.T) {
	// Property: with a fixed total, more completions never worsen the status.
	rank := map[HealthStatus]int{StatusCritical: 0, StatusWarning: 1, StatusHealthy: 2}
	const total = 40

	prev := -1
	for completed := 0; completed <= total; completed++ {
		got, err := EvaluateHealth(mkRecords(completed, total-completed, 0))
		if err != nil {
			t.Fatalf("completed=%d: %v", completed, err)
		}
		if r := rank[got.Status]; r < prev {
			t.Fatalf("status got worse as completions rose: completed=%d status=%q", completed, got.Status)
		} else {
			prev = r
		}
	}
}

// --- statusFromRate ---

func TestStatusFromRate(t *testing.T) {
	tests := []struct {
		rate float64
		want HealthStatus
	}{
		{100, StatusHealthy},
		{95, StatusHealthy},
		{94.99, StatusWarning},
		{85, StatusWarning},
		{84.99, StatusCritical},
		{0, StatusCritical},
	}
	for _, tc := range tests {
		if got := statusFromRate(tc.rate); got != tc.want {
			t.Errorf("statusFromRate(%.2f) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}
