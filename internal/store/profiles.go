package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"applyflow-engine/internal/domain"
)

// ProfileStore reads and writes per-user filter profiles. Keyword and
// location lists are stored as JSON text columns. The portal password never
// touches this table; it lives in the OS keyring.
type ProfileStore struct {
	DB *sql.DB
}

// GetFilterProfile returns the profile snapshot for one user, or ErrNotFound.
func (s *ProfileStore) GetFilterProfile(ctx context.Context, userID int64) (domain.FilterProfile, error) {
	var p domain.FilterProfile
	var keywords, blacklistKW, blacklistCo, locations string
	var active int

	err := s.DB.QueryRowContext(ctx, `
SELECT user_id, portal_username, keywords, blacklist_keywords, blacklist_companies, locations, active
FROM profiles WHERE user_id = ?;`, userID).Scan(
		&p.UserID, &p.PortalUsername, &keywords, &blacklistKW, &blacklistCo, &locations, &active,
	)
	if err == sql.ErrNoRows {
		return domain.FilterProfile{}, ErrNotFound
	}
	if err != nil {
		return domain.FilterProfile{}, fmt.Errorf("profile get: %w", err)
	}

	_ = json.Unmarshal([]byte(keywords), &p.Keywords)
	_ = json.Unmarshal([]byte(blacklistKW), &p.BlacklistKeywords)
	_ = json.Unmarshal([]byte(blacklistCo), &p.BlacklistCompanies)
	_ = json.Unmarshal([]byte(locations), &p.Locations)
	p.Active = active != 0
	return p, nil
}

func (s *ProfileStore) Save(ctx context.Context, p domain.FilterProfile) error {
	keywords, _ := json.Marshal(p.Keywords)
	blacklistKW, _ := json.Marshal(p.BlacklistKeywords)
	blacklistCo, _ := json.Marshal(p.BlacklistCompanies)
	locations, _ := json.Marshal(p.Locations)
	active := 0
	if p.Active {
		active = 1
	}

	_, err := s.DB.ExecContext(ctx, `
INSERT INTO profiles (user_id, portal_username, keywords, blacklist_keywords, blacklist_companies, locations, active, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  portal_username = excluded.portal_username,
  keywords = excluded.keywords,
  blacklist_keywords = excluded.blacklist_keywords,
  blacklist_companies = excluded.blacklist_companies,
  locations = excluded.locations,
  active = excluded.active,
  updated_at = excluded.updated_at;`,
		p.UserID, p.PortalUsername, string(keywords), string(blacklistKW),
		string(blacklistCo), string(locations), active,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("profile save: %w", err)
	}
	return nil
}

// ListActiveUserIDs returns the users the scheduler enqueues runs for.
func (s *ProfileStore) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT user_id FROM profiles WHERE active = 1 ORDER BY user_id;`)
	if err != nil {
		return nil, fmt.Errorf("profile list active: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
