package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"applyflow-engine/internal/domain"
)

// RunStore persists run lifecycle records. The orchestrator owns the
// lifecycle; the store only checks that a persisted transition is legal.
type RunStore struct {
	DB *sql.DB
}

func (s *RunStore) Create(ctx context.Context, r domain.Run) error {
	counters, _ := json.Marshal(r.Counters)
	errsJSON, _ := json.Marshal(r.Errors)

	_, err := s.DB.ExecContext(ctx, `
INSERT INTO runs (id, user_id, status, counters, errors, failure_reason, started_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, NULL);`,
		r.ID, r.UserID, string(r.Status), string(counters), string(errsJSON),
		r.FailureReason, r.StartedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("run create: %w", err)
	}
	return nil
}

// SetStatus moves a run to a new non-terminal status (PENDING → RUNNING).
func (s *RunStore) SetStatus(ctx context.Context, runID string, to domain.RunStatus) error {
	cur, err := s.Get(ctx, runID)
	if err != nil {
		return err
	}
	if !domain.IsRunTransitionAllowed(cur.Status, to) {
		return fmt.Errorf("run %s: illegal transition %s → %s", runID, cur.Status, to)
	}
	_, err = s.DB.ExecContext(ctx,
		`UPDATE runs SET status = ? WHERE id = ?;`, string(to), runID)
	if err != nil {
		return fmt.Errorf("run set status: %w", err)
	}
	return nil
}

// Finish writes the terminal state, counters and error list in one update.
func (s *RunStore) Finish(ctx context.Context, r domain.Run) error {
	cur, err := s.Get(ctx, r.ID)
	if err != nil {
		return err
	}
	if !domain.IsRunTransitionAllowed(cur.Status, r.Status) {
		return fmt.Errorf("run %s: illegal transition %s → %s", r.ID, cur.Status, r.Status)
	}

	counters, _ := json.Marshal(r.Counters)
	errsJSON, _ := json.Marshal(r.Errors)
	finished := time.Now().UTC()
	if r.FinishedAt != nil {
		finished = *r.FinishedAt
	}

	_, err = s.DB.ExecContext(ctx, `
UPDATE runs
SET status = ?, counters = ?, errors = ?, failure_reason = ?, finished_at = ?
WHERE id = ?;`,
		string(r.Status), string(counters), string(errsJSON), r.FailureReason,
		finished.Format(time.RFC3339), r.ID,
	)
	if err != nil {
		return fmt.Errorf("run finish: %w", err)
	}
	return nil
}

func (s *RunStore) Get(ctx context.Context, runID string) (domain.Run, error) {
	var r domain.Run
	var status, counters, errsJSON, startedAt string
	var finishedAt sql.NullString

	err := s.DB.QueryRowContext(ctx, `
SELECT id, user_id, status, counters, errors, failure_reason, started_at, finished_at
FROM runs WHERE id = ?;`, runID).Scan(
		&r.ID, &r.UserID, &status, &counters, &errsJSON, &r.FailureReason,
		&startedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Run{}, ErrNotFound
	}
	if err != nil {
		return domain.Run{}, fmt.Errorf("run get: %w", err)
	}

	r.Status, err = domain.ParseRunStatus(status)
	if err != nil {
		return domain.Run{}, err
	}
	_ = json.Unmarshal([]byte(counters), &r.Counters)
	_ = json.Unmarshal([]byte(errsJSON), &r.Errors)
	r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if finishedAt.Valid && finishedAt.String != "" {
		t, perr := time.Parse(time.RFC3339, finishedAt.String)
		if perr == nil {
			r.FinishedAt = &t
		}
	}
	return r, nil
}

func (s *RunStore) ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id FROM runs WHERE user_id = ? ORDER BY started_at DESC LIMIT ?;`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("run list: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Run, 0, len(ids))
	for _, id := range ids {
		r, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
