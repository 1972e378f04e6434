package run

import (
	"context"
	"fmt"

	"applyflow-engine/internal/domain"
)

// Driver is the per-run view of the portal session. *portal.Session satisfies
// it; tests substitute fakes. One driver instance belongs to exactly one run.
type Driver interface {
	Login(ctx context.Context, username, password string) error
	Search(ctx context.Context, keywords []string, location string) error
	Postings() ([]domain.JobPosting, []error)
	NextPage(ctx context.Context) (bool, error)
	// Apply returns the confirmed job identity on success.
	Apply(ctx context.Context, p domain.JobPosting) (string, error)
	Close() error
}

// SessionFactory opens a fresh driver for one run attempt.
type SessionFactory func() (Driver, error)

// AlreadyRunningError is returned synchronously by Start when the user
// already has an active run. It is not a run failure.
type AlreadyRunningError struct {
	UserID int64
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("a run is already active for user %d", e.UserID)
}

// AbortError terminates the remaining run after too many consecutive
// posting-level submit failures.
type AbortError struct {
	Consecutive int
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("aborted after %d consecutive submit failures", e.Consecutive)
}
