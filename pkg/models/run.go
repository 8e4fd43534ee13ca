package models

import "time"

// SyncOutcome describes what happened to the working tree before a run
type SyncOutcome string

const (
	// SyncApplied means the tree was clean and was reset to the remote branch
	SyncApplied SyncOutcome = "applied"
	// SyncSkipped means local modifications were present and the tree was left alone
	SyncSkipped SyncOutcome = "skipped"
	// SyncFailed means the reset step reported an error (the run proceeded anyway)
	SyncFailed SyncOutcome = "failed"
)

// RunRecord is one completed worker invocation as persisted in the history store
type RunRecord struct {
	ID          int64       `json:"id"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	PID         int         `json:"pid"`
	ExitCode    int         `json:"exit_code"`
	DurationSec float64     `json:"duration_seconds"`
	Sync        SyncOutcome `json:"sync"`
	SyncError   string      `json:"sync_error,omitempty"`
}

// Succeeded reports whether the worker exited with status zero.
// The supervisor never branches on this; it exists for history display.
func (r *RunRecord) Succeeded() bool {
	return r.ExitCode == 0
}
