// Run lifecycle:
//
//	PENDING ──► RUNNING ──► SUCCEEDED
//	    │           ├─────► FAILED
//	    │           └─────► CANCELLED
//	    └─────────────────► CANCELLED
//
// SUCCEEDED, FAILED and CANCELLED are terminal.
package domain

import (
	"fmt"
	"time"
)

type RunStatus string

const (
	RunPending   RunStatus = "PENDING"
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
	RunCancelled RunStatus = "CANCELLED"
)

var validRunTransitions = map[RunStatus][]RunStatus{
	// PENDING → FAILED covers runs that never won a worker slot
	RunPending: {RunRunning, RunFailed, RunCancelled},
	RunRunning: {RunSucceeded, RunFailed, RunCancelled},
	// terminal states have no outgoing transitions
}

// ParseRunStatus converts a raw string to a RunStatus, returning an error for
// unknown values.
func ParseRunStatus(s string) (RunStatus, error) {
	st := RunStatus(s)
	switch st {
	case RunPending, RunRunning, RunSucceeded, RunFailed, RunCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown run status %q", s)
}

// Terminal reports whether the status has no outgoing transitions.
func (s RunStatus) Terminal() bool {
	_, ok := validRunTransitions[s]
	return !ok
}

// IsRunTransitionAllowed returns true when moving from → to is permitted.
func IsRunTransitionAllowed(from, to RunStatus) bool {
	for _, s := range validRunTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// RunCounters aggregates posting-level outcomes for one run.
type RunCounters struct {
	Discovered  int `json:"discovered"`
	FilteredOut int `json:"filtered_out"`
	Applied     int `json:"applied"`
	Skipped     int `json:"skipped"`
	Errored     int `json:"errored"`
}

// PostingError describes one absorbed posting-level failure.
type PostingError struct {
	JobURL  string `json:"job_url"`
	Kind    string `json:"kind"` // listing_parse | application_submit | persistence
	Message string `json:"message"`
}

// Run is one execution of the application pipeline for a single user.
type Run struct {
	ID            string         `json:"id"`
	UserID        int64          `json:"user_id"`
	Status        RunStatus      `json:"status"`
	Counters      RunCounters    `json:"counters"`
	Errors        []PostingError `json:"errors,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
}

// Summary is the post-run report handed to the Notifier.
type Summary struct {
	RunID   string `json:"run_id"`
	UserID  int64  `json:"user_id"`
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
	Errored int    `json:"errored"`
}

func (r Run) Summary() Summary {
	return Summary{
		RunID:   r.ID,
		UserID:  r.UserID,
		Applied: r.Counters.Applied,
		Skipped: r.Counters.Skipped,
		Errored: r.Counters.Errored,
	}
}
