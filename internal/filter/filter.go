// Package filter classifies postings against a user's policy. It is pure:
// no I/O, no clock, no state. The same posting and profile always produce
// the same result, which is what makes runs and regenerations reproducible.
package filter

import (
	"strings"

	"applyflow-engine/internal/domain"
)

type Result struct {
	Eligible       bool
	MatchedKeyword string
}

// Evaluate reports whether a posting passes the profile's policy.
//
// A posting is eligible iff at least one profile keyword occurs in the title,
// no blacklisted keyword occurs in the title, and no blacklisted company
// substring occurs in the company name. All matching is case-insensitive
// substring matching. MatchedKeyword is the first keyword in the profile's
// configured order that hits the title, independent of discovery order.
func Evaluate(p domain.JobPosting, profile domain.FilterProfile) Result {
	title := strings.ToLower(p.Title)
	company := strings.ToLower(p.Company)

	for _, b := range profile.BlacklistKeywords {
		b = strings.ToLower(strings.TrimSpace(b))
		if b == "" {
			continue
		}
		if strings.Contains(title, b) {
			return Result{}
		}
	}

	for _, c := range profile.BlacklistCompanies {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if strings.Contains(company, c) {
			return Result{}
		}
	}

	for _, k := range profile.Keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if strings.Contains(title, strings.ToLower(k)) {
			return Result{Eligible: true, MatchedKeyword: k}
		}
	}

	return Result{}
}
