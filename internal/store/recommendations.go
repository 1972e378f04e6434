package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"applyflow-engine/internal/domain"
)

// RecommendationStore holds each user's recommendation set. The set is only
// ever replaced wholesale, inside one transaction, so a reader never observes
// an empty window or a stale partial merge.
type RecommendationStore struct {
	DB *sql.DB
}

func (s *RecommendationStore) ReplaceAll(ctx context.Context, userID int64, recs []domain.RecommendationRecord) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("recommendations replace: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recommendations WHERE user_id = ?;`, userID); err != nil {
		return fmt.Errorf("recommendations replace: delete: %w", err)
	}

	for _, r := range recs {
		if r.GeneratedAt.IsZero() {
			r.GeneratedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO recommendations (user_id, job_url, title, company, location, matched_keyword, generated_at)
VALUES (?, ?, ?, ?, ?, ?, ?);`,
			userID, r.JobURL, r.Title, r.Company, r.Location, r.MatchedKeyword,
			r.GeneratedAt.Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("recommendations replace: insert: %w", err)
		}
	}

	return tx.Commit()
}

func (s *RecommendationStore) List(ctx context.Context, userID int64) ([]domain.RecommendationRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT user_id, job_url, title, company, location, matched_keyword, generated_at
FROM recommendations
WHERE user_id = ?
ORDER BY id;`, userID)
	if err != nil {
		return nil, fmt.Errorf("recommendations list: %w", err)
	}
	defer rows.Close()

	var out []domain.RecommendationRecord
	for rows.Next() {
		var r domain.RecommendationRecord
		var generatedAt string
		if err := rows.Scan(&r.UserID, &r.JobURL, &r.Title, &r.Company, &r.Location, &r.MatchedKeyword, &generatedAt); err != nil {
			return nil, err
		}
		r.GeneratedAt, _ = time.Parse(time.RFC3339, generatedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
