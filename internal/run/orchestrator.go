// Package run owns the application pipeline: the per-run executor and the
// orchestrator that wraps it with locking, retries, timeouts and lifecycle
// recording.
package run

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/portal"
)

// ProfileStore yields the immutable profile snapshot at run start.
type ProfileStore interface {
	GetFilterProfile(ctx context.Context, userID int64) (domain.FilterProfile, error)
}

// SecretSource resolves the portal password for a user (keyring-backed).
type SecretSource interface {
	PortalPassword(userID int64) (string, error)
}

// RunStore persists run lifecycle records.
type RunStore interface {
	Create(ctx context.Context, r domain.Run) error
	SetStatus(ctx context.Context, runID string, to domain.RunStatus) error
	Finish(ctx context.Context, r domain.Run) error
	Get(ctx context.Context, runID string) (domain.Run, error)
}

// Notifier receives the post-run summary. The orchestrator only produces it;
// formatting and delivery live elsewhere.
type Notifier interface {
	RunFinished(r domain.Run)
}

type NotifierFunc func(r domain.Run)

func (f NotifierFunc) RunFinished(r domain.Run) { f(r) }

type Options struct {
	RunTimeout   time.Duration // wall-clock cap across all attempts
	MaxRetries   int           // additional attempts after a transient failure
	RetryBackoff time.Duration
	WorkerSlots  int64 // browser-session capacity
}

func (o *Options) defaults() {
	if o.RunTimeout <= 0 {
		o.RunTimeout = 30 * time.Minute
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 10 * time.Second
	}
	if o.WorkerSlots <= 0 {
		o.WorkerSlots = 2
	}
}

// Orchestrator is the top-level entry point, invoked per user on demand or
// via the task queue. Exactly one active run per user; run bodies execute on
// a semaphore bounded by browser-session capacity.
type Orchestrator struct {
	profiles ProfileStore
	secrets  SecretSource
	runs     RunStore
	locks    UserLocker
	sessions SessionFactory
	exec     *Executor
	notifier Notifier
	opts     Options

	slots *semaphore.Weighted

	mu     sync.Mutex
	active map[string]context.CancelFunc // runID → cancel
	wg     sync.WaitGroup
}

func NewOrchestrator(
	profiles ProfileStore,
	secrets SecretSource,
	runs RunStore,
	locks UserLocker,
	sessions SessionFactory,
	exec *Executor,
	notifier Notifier,
	opts Options,
) *Orchestrator {
	opts.defaults()
	return &Orchestrator{
		profiles: profiles,
		secrets:  secrets,
		runs:     runs,
		locks:    locks,
		sessions: sessions,
		exec:     exec,
		notifier: notifier,
		opts:     opts,
		slots:    semaphore.NewWeighted(opts.WorkerSlots),
		active:   make(map[string]context.CancelFunc),
	}
}

// Start snapshots the profile, takes the per-user slot and creates the run in
// PENDING, then executes it in the background. Lock contention surfaces
// immediately as *AlreadyRunningError, never queued silently.
func (o *Orchestrator) Start(ctx context.Context, userID int64) (string, error) {
	profile, err := o.profiles.GetFilterProfile(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("start run for user %d: %w", userID, err)
	}

	release, err := o.locks.Acquire(ctx, userID)
	if err != nil {
		return "", err
	}

	password, err := o.secrets.PortalPassword(userID)
	if err != nil {
		release()
		return "", fmt.Errorf("start run for user %d: %w", userID, err)
	}
	profile.PortalPassword = password

	runID := uuid.NewString()
	r := domain.Run{
		ID:        runID,
		UserID:    userID,
		Status:    domain.RunPending,
		StartedAt: time.Now().UTC(),
	}
	if err := o.runs.Create(ctx, r); err != nil {
		release()
		return "", fmt.Errorf("start run for user %d: %w", userID, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.active[runID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go o.execute(runCtx, r, profile, release, cancel)

	log.Printf("[orchestrator] run=%s user=%d created", runID, userID)
	return runID, nil
}

// Status returns the pollable run record.
func (o *Orchestrator) Status(ctx context.Context, runID string) (domain.Run, error) {
	return o.runs.Get(ctx, runID)
}

// Cancel flips the run's cancellation flag. Cooperative: the executor checks
// it between postings and after page transitions, and the session is still
// closed before the run finishes.
func (o *Orchestrator) Cancel(runID string) error {
	o.mu.Lock()
	cancel, ok := o.active[runID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("run %s is not active", runID)
	}
	cancel()
	return nil
}

// Wait blocks until all in-flight runs have finished. Shutdown helper.
func (o *Orchestrator) Wait() { o.wg.Wait() }

func (o *Orchestrator) execute(ctx context.Context, r domain.Run, profile domain.FilterProfile, release, cancel context.CancelFunc) {
	defer o.wg.Done()
	defer release()
	defer cancel()
	defer func() {
		o.mu.Lock()
		delete(o.active, r.ID)
		o.mu.Unlock()
	}()

	// Run-level wall clock cap spans slot wait and every retry attempt.
	ctx, timeoutCancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer timeoutCancel()

	if err := o.slots.Acquire(ctx, 1); err != nil {
		o.finish(r, err)
		return
	}
	defer o.slots.Release(1)

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	err := o.runs.SetStatus(sctx, r.ID, domain.RunRunning)
	scancel()
	if err != nil {
		log.Printf("[orchestrator] run=%s mark running failed: %v", r.ID, err)
	}
	r.Status = domain.RunRunning

	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			log.Printf("[orchestrator] run=%s retrying after transient failure (attempt %d): %v",
				r.ID, attempt+1, lastErr)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			case <-time.After(o.opts.RetryBackoff * time.Duration(attempt)):
			}
			if ctx.Err() != nil {
				break
			}
		}

		lastErr = o.attempt(ctx, &r, profile)
		if lastErr == nil {
			break
		}

		// only transient navigation timeouts are retried; credentials are
		// never re-submitted within a run
		var nav *portal.NavTimeoutError
		if !errors.As(lastErr, &nav) || attempt >= o.opts.MaxRetries {
			break
		}
	}

	o.finish(r, lastErr)
}

// attempt opens one session, logs in and walks the listings. The session is
// closed on every exit path, run outcome notwithstanding.
func (o *Orchestrator) attempt(ctx context.Context, r *domain.Run, profile domain.FilterProfile) error {
	d, err := o.sessions()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			log.Printf("[orchestrator] run=%s session close: %v", r.ID, cerr)
		}
	}()

	if err := d.Login(ctx, profile.PortalUsername, profile.PortalPassword); err != nil {
		return err
	}
	return o.exec.Execute(ctx, d, profile, r)
}

func (o *Orchestrator) finish(r domain.Run, err error) {
	status, reason := classify(err)
	r.Status = status
	r.FailureReason = reason
	now := time.Now().UTC()
	r.FinishedAt = &now

	fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ferr := o.runs.Finish(fctx, r); ferr != nil {
		log.Printf("[orchestrator] ANOMALY run=%s: terminal state %s not persisted: %v", r.ID, status, ferr)
	}

	log.Printf("[orchestrator] run=%s user=%d finished status=%s applied=%d skipped=%d errored=%d reason=%q",
		r.ID, r.UserID, status, r.Counters.Applied, r.Counters.Skipped, r.Counters.Errored, reason)

	if o.notifier != nil {
		o.notifier.RunFinished(r)
	}
}
