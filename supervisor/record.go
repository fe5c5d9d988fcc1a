package supervisor

import (
	"time"

	"github.com/geekdivyxnsh/WorkFlow-Engine/engine"
)

// Status represents the lifecycle status of a run.
type Status string

const (
	// StatusRunning indicates the run is in progress.
	StatusRunning Status = "running"
	// StatusCompleted indicates the run finished normally.
	StatusCompleted Status = "completed"
	// StatusFailed indicates a structural or escaping failure ended the run.
	StatusFailed Status = "failed"
)

// ExecutionRecord is the supervisor-owned status record of one run. It is
// created when the run starts and mutated exclusively by the owning run
// goroutine; once the status is completed or failed the record is terminal.
type ExecutionRecord struct {
	RunID       string                `json:"run_id"`
	Status      Status                `json:"status"`
	State       engine.State          `json:"state"`
	History     []engine.HistoryEntry `json:"history"`
	Error       string                `json:"error,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt time.Time             `json:"completed_at,omitempty"`
}

// RunSnapshot is a caller-safe copy of a record taken at one instant.
type RunSnapshot struct {
	RunID   string                `json:"run_id"`
	Status  Status                `json:"status"`
	State   engine.State          `json:"state"`
	History []engine.HistoryEntry `json:"history"`
	Error   string                `json:"error,omitempty"`
}
