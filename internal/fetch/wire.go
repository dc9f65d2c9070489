package fetch

import (
	"time"

	"github.com/flowpulse/flowpulse/internal/workflow"
)

// Wire types mirror the engine's REST payloads. Only the fields we read are
// declared; encoding/json ignores the rest.

type workflowListPayload struct {
	Data []wireWorkflow `json:"data"`
}

type wireWorkflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type executionListPayload struct {
	Data []wireExecution `json:"data"`
}

type wireExecution struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"startedAt"`
	StoppedAt       *time.Time `json:"stoppedAt"`
	DurationSeconds float64    `json:"durationSeconds"`
	Error           *wireError `json:"error"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toDefinitions(in []wireWorkflow) []workflow.Definition {
	out := make([]workflow.Definition, 0, len(in))
	for _, w := range in {
		out = append(out, workflow.Definition{
			ID:        w.ID,
			Name:      w.Name,
			Active:    w.Active,
			UpdatedAt: w.UpdatedAt,
		})
	}
	return out
}

func toRecords(in []wireExecution) []workflow.ExecutionRecord {
	out := make([]workflow.ExecutionRecord, 0, len(in))
	for _, w := range in {
		out = append(out, toRecord(w))
	}
	return out
}

// toRecord converts one wire execution to the domain record. The engine
// reports either an explicit duration or start/stop timestamps; when only
// the timestamps are present the duration is derived from them.
func toRecord(w wireExecution) workflow.ExecutionRecord {
	rec := workflow.ExecutionRecord{
		ID:        w.ID,
		Status:    normalizeStatus(w.Status),
		Duration:  w.DurationSeconds,
		StartedAt: w.StartedAt,
	}
	if w.StoppedAt != nil {
		rec.FinishedAt = *w.StoppedAt
		if rec.Duration == 0 && !w.StartedAt.IsZero() && w.StoppedAt.After(w.StartedAt) {
			rec.Duration = w.StoppedAt.Sub(w.StartedAt).Seconds()
		}
	}
	if w.Error != nil {
		rec.ErrorCode = workflow.ErrorCode(w.Error.Code)
		rec.FailureReason = w.Error.Message
	}
	return rec
}

// normalizeStatus maps the engine's execution status vocabulary onto ours.
// Unknown values pass through unchanged so the analyzer rejects them instead
// of this layer guessing.
func normalizeStatus(s string) workflow.Status {
	switch s {
	case "success", "completed":
		return workflow.StatusCompleted
	case "error", "failed", "crashed":
		return workflow.StatusFailed
	case "running", "waiting", "new", "in_progress":
		return workflow.StatusInProgress
	case "canceled", "cancelled":
		return workflow.StatusCancelled
	}
	return workflow.Status(s)
}
