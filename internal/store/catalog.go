package store

import (
	"context"
	"database/sql"
	"fmt"

	"applyflow-engine/internal/domain"
)

// JobCatalog is the static posting set the recommendation matcher evaluates.
// Batch, no pagination; seeded by the admin API.
type JobCatalog struct {
	DB *sql.DB
}

func (c *JobCatalog) Upsert(ctx context.Context, p domain.JobPosting) error {
	if p.URL == "" {
		return fmt.Errorf("catalog upsert: posting %q has no URL", p.Title)
	}
	_, err := c.DB.ExecContext(ctx, `
INSERT INTO catalog_jobs (title, company, location, url, experience)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
  title = excluded.title,
  company = excluded.company,
  location = excluded.location,
  experience = excluded.experience;`,
		p.Title, p.Company, p.Location, p.URL, p.Experience,
	)
	if err != nil {
		return fmt.Errorf("catalog upsert: %w", err)
	}
	return nil
}

func (c *JobCatalog) ListAll(ctx context.Context) ([]domain.JobPosting, error) {
	rows, err := c.DB.QueryContext(ctx, `
SELECT title, company, location, url, experience FROM catalog_jobs ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("catalog list: %w", err)
	}
	defer rows.Close()

	var out []domain.JobPosting
	for rows.Next() {
		var p domain.JobPosting
		if err := rows.Scan(&p.Title, &p.Company, &p.Location, &p.URL, &p.Experience); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
