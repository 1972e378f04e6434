package domain

import "time"

// JobPosting is one listing as extracted from the portal or the catalog.
// URL is the portal-assigned canonical URL and acts as the identity key:
// two postings with the same URL are the same job. Postings without a URL
// cannot be deduplicated and are rejected at the extraction boundary.
type JobPosting struct {
	Title      string `json:"title"`
	Company    string `json:"company"`
	Location   string `json:"location"`
	URL        string `json:"url"`
	Experience string `json:"experience,omitempty"` // e.g. "2-4 yrs"
}

// FilterProfile is a per-user snapshot of the application policy, taken once
// at the start of a run. A running run never observes a concurrent profile
// update.
type FilterProfile struct {
	UserID             int64    `json:"user_id"`
	PortalUsername     string   `json:"portal_username"`
	PortalPassword     string   `json:"-"` // filled from the keyring, never persisted
	Keywords           []string `json:"keywords"` // ordered; first match wins
	BlacklistKeywords  []string `json:"blacklist_keywords"`
	BlacklistCompanies []string `json:"blacklist_companies"`
	Locations          []string `json:"locations"`
	Active             bool     `json:"active"`
}

// PrimaryLocation returns the first preferred location, used to build the
// portal search query.
func (p FilterProfile) PrimaryLocation() string {
	if len(p.Locations) == 0 {
		return ""
	}
	return p.Locations[0]
}

// ApplicationRecord is one submitted application. Unique per (UserID, JobURL);
// the ledger never holds two records for the same user and job.
type ApplicationRecord struct {
	UserID    int64     `json:"user_id"`
	JobURL    string    `json:"job_url"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	Outcome   string    `json:"outcome"`
	AppliedAt time.Time `json:"applied_at"`
}

// RecommendationRecord is one catalog match for a user. The whole set for a
// user is replaced wholesale on each regeneration, never merged.
type RecommendationRecord struct {
	UserID         int64     `json:"user_id"`
	JobURL         string    `json:"job_url"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	Location       string    `json:"location"`
	MatchedKeyword string    `json:"matched_keyword"`
	GeneratedAt    time.Time `json:"generated_at"`
}
