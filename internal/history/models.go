package history

import "time"

// Status is the lifecycle state of a recorded build.
type Status string

const (
	StatusRunning     Status = "running"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Build is one recorded release build.
type Build struct {
	RunID      string
	Unit       string
	Project    string
	Output     string
	Status     Status
	Tracks     int
	Warnings   int
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration is the wall time of a finished build, zero while running.
func (b Build) Duration() time.Duration {
	if b.FinishedAt == nil {
		return 0
	}
	return b.FinishedAt.Sub(b.StartedAt)
}

// Outcome is what Finish records about a build.
type Outcome struct {
	Output   string
	Tracks   int
	Warnings int
	Err      error
}

// Filter narrows List results. A zero Limit returns every row.
type Filter struct {
	Unit   string
	Status Status
	Limit  int
}
