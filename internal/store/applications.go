package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"applyflow-engine/internal/domain"
)

// ApplicationLedger is the persisted record of applications already
// submitted per user. Insertion is idempotent per (user, job URL) so the
// at-least-once task queue and run retries cannot create duplicates.
type ApplicationLedger struct {
	DB *sql.DB
}

func (l *ApplicationLedger) Exists(ctx context.Context, userID int64, jobURL string) (bool, error) {
	var one int
	err := l.DB.QueryRowContext(ctx,
		`SELECT 1 FROM applications WHERE user_id = ? AND job_url = ? LIMIT 1;`,
		userID, jobURL,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger exists: %w", err)
	}
	return true, nil
}

// Record inserts the application if the (user, job URL) pair is new. An
// existing pair is success, not an error; the record of the first insert
// stands.
func (l *ApplicationLedger) Record(ctx context.Context, rec domain.ApplicationRecord) error {
	if rec.AppliedAt.IsZero() {
		rec.AppliedAt = time.Now().UTC()
	}
	if rec.Outcome == "" {
		rec.Outcome = "applied"
	}

	_, err := l.DB.ExecContext(ctx, `
INSERT OR IGNORE INTO applications (user_id, job_url, title, company, outcome, applied_at)
VALUES (?, ?, ?, ?, ?, ?);`,
		rec.UserID, rec.JobURL, rec.Title, rec.Company, rec.Outcome,
		rec.AppliedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("ledger record: %w", err)
	}
	return nil
}

func (l *ApplicationLedger) List(ctx context.Context, userID int64) ([]domain.ApplicationRecord, error) {
	rows, err := l.DB.QueryContext(ctx, `
SELECT user_id, job_url, title, company, outcome, applied_at
FROM applications
WHERE user_id = ?
ORDER BY applied_at DESC;`, userID)
	if err != nil {
		return nil, fmt.Errorf("ledger list: %w", err)
	}
	defer rows.Close()

	var out []domain.ApplicationRecord
	for rows.Next() {
		var rec domain.ApplicationRecord
		var appliedAt string
		if err := rows.Scan(&rec.UserID, &rec.JobURL, &rec.Title, &rec.Company, &rec.Outcome, &appliedAt); err != nil {
			return nil, err
		}
		rec.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
