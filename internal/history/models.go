package history

import "time"

// Status is the outcome of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusCompleted   Status = "completed"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Record is one ledger row.
type Record struct {
	ID           string
	Source       string
	Title        string
	StartStage   string
	Status       Status
	ErrorMessage string
	OutputPath   string
	OutputSize   int64
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Duration reports how long the run took, or how long it has been running.
func (r Record) Duration() time.Duration {
	if r.FinishedAt == nil {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome is the final state written by Finish.
type Outcome struct {
	Status     Status
	Title      string
	Err        error
	OutputPath string
	OutputSize int64
}
