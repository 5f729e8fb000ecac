package stores

import (
	"time"
)

// RunStatus represents the status of a journaled run
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusFatal   RunStatus = "fatal"
)

// Run represents a provisioning run
type Run struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Hostname    string     `json:"hostname"`
	DryRun      bool       `json:"dry_run"`
	Status      RunStatus  `json:"status"`
	FatalReason *string    `json:"fatal_reason,omitempty"`
	Error       *string    `json:"error,omitempty"`
	StepCount   int        `json:"step_count"`
	FailedCount int        `json:"failed_count"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Steps is only populated by GetRun
	Steps []StepResult `json:"steps,omitempty"`
}

// StepResult is the recorded outcome of one step
type StepResult struct {
	RunID      string        `json:"run_id"`
	Position   int           `json:"position"`
	Name       string        `json:"name"`
	Isolated   bool          `json:"isolated"`
	Status     string        `json:"status"`
	Reason     string        `json:"reason,omitempty"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Failed reports whether the step failed
func (s StepResult) Failed() bool {
	return s.Status == "failure"
}
