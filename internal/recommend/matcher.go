// Package recommend regenerates a user's recommendation set from the static
// job catalog. No browser involved; cheap to re-run on every profile update.
package recommend

import (
	"context"
	"fmt"
	"log"
	"time"

	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/filter"
)

// RecommendationStore replaces a user's whole recommendation set atomically.
type RecommendationStore interface {
	ReplaceAll(ctx context.Context, userID int64, recs []domain.RecommendationRecord) error
}

// Catalog yields the full posting set to evaluate. Batch, no pagination.
type Catalog interface {
	ListAll(ctx context.Context) ([]domain.JobPosting, error)
}

type Matcher struct {
	Store   RecommendationStore
	Catalog Catalog
}

// Regenerate evaluates every catalog posting against the profile and replaces
// the user's recommendation set with the eligible subset. Replacement is
// wholesale: stale matches from an earlier keyword set never survive.
// Returns the number of recommendations written.
func (m *Matcher) Regenerate(ctx context.Context, userID int64, profile domain.FilterProfile) (int, error) {
	catalog, err := m.Catalog.ListAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("regenerate: %w", err)
	}

	now := time.Now().UTC()
	var recs []domain.RecommendationRecord
	for _, p := range catalog {
		res := filter.Evaluate(p, profile)
		if !res.Eligible {
			continue
		}
		recs = append(recs, domain.RecommendationRecord{
			UserID:         userID,
			JobURL:         p.URL,
			Title:          p.Title,
			Company:        p.Company,
			Location:       p.Location,
			MatchedKeyword: res.MatchedKeyword,
			GeneratedAt:    now,
		})
	}

	if err := m.Store.ReplaceAll(ctx, userID, recs); err != nil {
		return 0, fmt.Errorf("regenerate: %w", err)
	}

	log.Printf("[recommend] user=%d catalog=%d matched=%d", userID, len(catalog), len(recs))
	return len(recs), nil
}
