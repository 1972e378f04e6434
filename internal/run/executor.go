package run

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/filter"
	"applyflow-engine/internal/portal"
)

// Ledger is the executor's view of the dedup ledger.
type Ledger interface {
	Exists(ctx context.Context, userID int64, jobURL string) (bool, error)
	Record(ctx context.Context, rec domain.ApplicationRecord) error
}

// Executor walks the listing pages of one authenticated session, classifies
// each posting through the filter engine, and applies to eligible postings
// that the ledger has not seen. Posting-level failures are absorbed into the
// run's counters; only session-level failures escape.
type Executor struct {
	Ledger Ledger

	MaxPages                int
	MaxApplications         int
	ConsecutiveFailureLimit int
}

func (e *Executor) limits() (pages, apps, failures int) {
	pages = e.MaxPages
	if pages <= 0 {
		pages = 10
	}
	apps = e.MaxApplications
	if apps <= 0 {
		apps = 50
	}
	failures = e.ConsecutiveFailureLimit
	if failures <= 0 {
		failures = 5
	}
	return
}

// Execute runs the page loop for one attempt. It mutates r's counters and
// error list in place; cumulative across retries, since the ledger makes
// re-walked postings idempotent. The caller owns session close.
func (e *Executor) Execute(ctx context.Context, d Driver, profile domain.FilterProfile, r *domain.Run) error {
	maxPages, maxApps, failLimit := e.limits()

	if err := d.Search(ctx, profile.Keywords, profile.PrimaryLocation()); err != nil {
		return err
	}

	consecutive := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		postings, perrs := d.Postings()
		for _, perr := range perrs {
			r.Counters.Errored++
			r.Errors = append(r.Errors, domain.PostingError{
				Kind:    "listing_parse",
				Message: perr.Error(),
			})
		}
		log.Printf("[executor] run=%s page=%d postings=%d parse_errors=%d",
			r.ID, page, len(postings), len(perrs))

		for _, p := range postings {
			if err := ctx.Err(); err != nil {
				return err
			}

			r.Counters.Discovered++

			res := filter.Evaluate(p, profile)
			if !res.Eligible {
				r.Counters.FilteredOut++
				continue
			}

			exists, err := e.Ledger.Exists(ctx, profile.UserID, p.URL)
			if err != nil {
				// Without a dedup answer we must not touch the portal: a blind
				// apply risks a duplicate external submission.
				log.Printf("[executor] run=%s ledger read failed url=%s err=%v", r.ID, p.URL, err)
				r.Counters.Errored++
				r.Errors = append(r.Errors, domain.PostingError{
					JobURL: p.URL, Kind: "persistence", Message: err.Error(),
				})
				continue
			}
			if exists {
				r.Counters.Skipped++
				continue
			}

			if r.Counters.Applied >= maxApps {
				log.Printf("[executor] run=%s reached application cap (%d)", r.ID, maxApps)
				return nil
			}

			identity, err := d.Apply(ctx, p)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				consecutive++
				r.Counters.Errored++
				r.Errors = append(r.Errors, domain.PostingError{
					JobURL: p.URL, Kind: "application_submit", Message: err.Error(),
				})
				log.Printf("[executor] run=%s apply failed url=%s consecutive=%d err=%v",
					r.ID, p.URL, consecutive, err)
				if consecutive >= failLimit {
					return &AbortError{Consecutive: consecutive}
				}
				continue
			}
			consecutive = 0

			e.recordApplication(ctx, r, profile.UserID, identity, p)
			r.Counters.Applied++
		}

		if page >= maxPages {
			return nil
		}
		more, err := d.NextPage(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// recordApplication writes the ledger entry for an application that has
// already happened on the portal. A failed write gets exactly one persistence
// retry and is then logged as an anomaly; re-invoking Apply would risk a
// duplicate external submission, so the write is the only thing retried.
func (e *Executor) recordApplication(ctx context.Context, r *domain.Run, userID int64, identity string, p domain.JobPosting) {
	rec := domain.ApplicationRecord{
		UserID:    userID,
		JobURL:    identity,
		Title:     p.Title,
		Company:   p.Company,
		Outcome:   "applied",
		AppliedAt: time.Now().UTC(),
	}

	err := e.Ledger.Record(ctx, rec)
	if err != nil {
		err = e.Ledger.Record(ctx, rec)
	}
	if err != nil {
		log.Printf("[executor] ANOMALY run=%s: applied on portal but ledger write failed user=%d url=%s err=%v",
			r.ID, userID, identity, err)
		r.Errors = append(r.Errors, domain.PostingError{
			JobURL: identity, Kind: "persistence",
			Message: fmt.Sprintf("applied but not recorded: %v", err),
		})
	}
}

// classify maps an attempt error to the terminal status and reason.
func classify(err error) (domain.RunStatus, string) {
	switch {
	case err == nil:
		return domain.RunSucceeded, ""
	case errors.Is(err, context.Canceled):
		return domain.RunCancelled, "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return domain.RunFailed, "run timeout exceeded"
	}

	var auth *portal.AuthError
	if errors.As(err, &auth) {
		return domain.RunFailed, auth.Error()
	}
	var abort *AbortError
	if errors.As(err, &abort) {
		return domain.RunFailed, abort.Error()
	}
	return domain.RunFailed, err.Error()
}
