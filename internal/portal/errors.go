package portal

import "fmt"

// AuthError means the portal rejected the credentials or never produced the
// authenticated signal. Fatal for the run; never retried automatically.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "portal authentication failed: " + e.Reason
}

// NavTimeoutError is a transient navigation failure. The orchestrator retries
// the whole run on it, with backoff, up to a bound.
type NavTimeoutError struct {
	URL string
	Err error
}

func (e *NavTimeoutError) Error() string {
	return fmt.Sprintf("navigation timed out: %s: %v", e.URL, e.Err)
}

func (e *NavTimeoutError) Unwrap() error { return e.Err }

// ParseError marks one posting that could not be extracted from a listing
// page. Non-fatal; the posting is skipped and counted.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "listing parse: " + e.Reason
}

// ApplyError is a per-posting submit failure. Non-fatal for the run but feeds
// the consecutive-failure abort counter.
type ApplyError struct {
	JobURL string
	Reason string
	Err    error
}

func (e *ApplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("apply %s: %s: %v", e.JobURL, e.Reason, e.Err)
	}
	return fmt.Sprintf("apply %s: %s", e.JobURL, e.Reason)
}

func (e *ApplyError) Unwrap() error { return e.Err }
