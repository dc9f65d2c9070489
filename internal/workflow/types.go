package workflow

import "time"

// Status is the terminal or in-progress state of one execution.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusInProgress Status = "in_progress"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the recognized execution states.
func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusInProgress, StatusCancelled:
		return true
	}
	return false
}

// ErrorCode classifies why an execution failed, when the engine reports one.
type ErrorCode string

const (
	ErrTimeout    ErrorCode = "timeout"
	ErrAPI        ErrorCode = "api_error"
	ErrRouting    ErrorCode = "routing_error"
	ErrValidation ErrorCode = "validation_error"
	ErrNone       ErrorCode = "none"
)

// Valid reports whether c is a recognized error code. The empty string is
// accepted and means the same as ErrNone, since the engine omits the field
// for successful executions.
func (c ErrorCode) Valid() bool {
	switch c {
	case ErrTimeout, ErrAPI, ErrRouting, ErrValidation, ErrNone, "":
		return true
	}
	return false
}

// ExecutionRecord is one observed run of a workflow. Records are produced by
// the fetch collaborator and are immutable once ingested; the analysis
// pipeline never mutates them.
type ExecutionRecord struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	ErrorCode     ErrorCode `json:"error_code,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`

	// Duration is the observed run time in seconds. Zero means unmeasured
	// (typically an execution still in progress).
	Duration float64 `json:"duration_seconds"`

	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Baseline is the expected execution profile for a workflow. It is supplied
// per evaluation call from operator configuration, never derived.
type Baseline struct {
	// DurationSeconds is the expected run time. Must be positive for the
	// duration-regression check to be meaningful.
	DurationSeconds float64 `json:"duration_seconds"`
}

// Definition is the engine-side metadata for a workflow.
type Definition struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
