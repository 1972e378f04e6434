package filter_test

import (
	"strings"
	"testing"

	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/filter"
)

func profile(keywords, blacklistKW, blacklistCo []string) domain.FilterProfile {
	return domain.FilterProfile{
		UserID:             1,
		Keywords:           keywords,
		BlacklistKeywords:  blacklistKW,
		BlacklistCompanies: blacklistCo,
	}
}

func TestEvaluate(t *testing.T) {
	cases := []struct {
		name        string
		posting     domain.JobPosting
		profile     domain.FilterProfile
		eligible    bool
		matchedKW   string
	}{
		{
			name:      "keyword match",
			posting:   domain.JobPosting{Title: "Python Developer", Company: "Acme"},
			profile:   profile([]string{"python"}, nil, nil),
			eligible:  true,
			matchedKW: "python",
		},
		{
			name:     "no keyword match",
			posting:  domain.JobPosting{Title: "Java Developer", Company: "Acme"},
			profile:  profile([]string{"python"}, nil, nil),
			eligible: false,
		},
		{
			name:     "blacklisted keyword wins over keyword match",
			posting:  domain.JobPosting{Title: "Senior Python Developer", Company: "Acme"},
			profile:  profile([]string{"python"}, []string{"senior"}, nil),
			eligible: false,
		},
		{
			name:     "blacklisted company substring",
			posting:  domain.JobPosting{Title: "Python Developer", Company: "Acme Staffing Ltd"},
			profile:  profile([]string{"python"}, nil, []string{"staffing"}),
			eligible: false,
		},
		{
			name:      "case-insensitive title match",
			posting:   domain.JobPosting{Title: "PYTHON ENGINEER", Company: "Acme"},
			profile:   profile([]string{"Python"}, nil, nil),
			eligible:  true,
			matchedKW: "Python",
		},
		{
			name:     "case-insensitive blacklist match",
			posting:  domain.JobPosting{Title: "Lead Python Developer", Company: "Acme"},
			profile:  profile([]string{"python"}, []string{"LEAD"}, nil),
			eligible: false,
		},
		{
			name:     "no keywords configured means nothing is eligible",
			posting:  domain.JobPosting{Title: "Python Developer", Company: "Acme"},
			profile:  profile(nil, nil, nil),
			eligible: false,
		},
		{
			name:      "blank keyword entries are ignored",
			posting:   domain.JobPosting{Title: "Go Developer", Company: "Acme"},
			profile:   profile([]string{"", "  ", "go"}, []string{""}, []string{" "}),
			eligible:  true,
			matchedKW: "go",
		},
		{
			name:      "substring match inside a longer word",
			posting:   domain.JobPosting{Title: "Golang Developer", Company: "Acme"},
			profile:   profile([]string{"go"}, nil, nil),
			eligible:  true,
			matchedKW: "go",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := filter.Evaluate(c.posting, c.profile)
			if got.Eligible != c.eligible {
				t.Errorf("Eligible = %v, want %v", got.Eligible, c.eligible)
			}
			if got.MatchedKeyword != c.matchedKW {
				t.Errorf("MatchedKeyword = %q, want %q", got.MatchedKeyword, c.matchedKW)
			}
		})
	}
}

// The matched keyword must be the first keyword in profile order that hits the
// title, not the best or longest match, and not anything that depends on how
// the posting was discovered.
func TestEvaluate_MatchedKeywordProfileOrder(t *testing.T) {
	p := domain.JobPosting{Title: "Senior Python and Django Developer", Company: "Acme"}

	got := filter.Evaluate(p, profile([]string{"django", "python"}, nil, nil))
	if got.MatchedKeyword != "django" {
		t.Errorf("MatchedKeyword = %q, want %q", got.MatchedKeyword, "django")
	}

	got = filter.Evaluate(p, profile([]string{"python", "django"}, nil, nil))
	if got.MatchedKeyword != "python" {
		t.Errorf("MatchedKeyword = %q, want %q", got.MatchedKeyword, "python")
	}
}

// Evaluate is pure: repeated invocations with the same inputs agree exactly.
func TestEvaluate_Deterministic(t *testing.T) {
	p := domain.JobPosting{Title: "Backend Engineer (Go)", Company: "Initech"}
	prof := profile([]string{"backend", "go"}, []string{"intern"}, []string{"staffing"})

	first := filter.Evaluate(p, prof)
	for i := 0; i < 100; i++ {
		if got := filter.Evaluate(p, prof); got != first {
			t.Fatalf("iteration %d: result %+v differs from first %+v", i, got, first)
		}
	}
}

// Eligibility must equal the conjunction of the three clauses, checked
// independently over a small grid of postings and profiles.
func TestEvaluate_ConjunctionProperty(t *testing.T) {
	titles := []string{
		"Python Developer", "Senior Python Developer", "Java Developer",
		"Data Analyst", "", "python python python",
	}
	companies := []string{"Acme", "Evil Corp", "Acme Staffing", ""}
	profiles := []domain.FilterProfile{
		profile([]string{"python"}, []string{"senior"}, []string{"staffing"}),
		profile([]string{"java", "data"}, nil, []string{"evil"}),
		profile([]string{"developer"}, []string{"java"}, nil),
	}

	contains := func(hay string, needles []string) bool {
		for _, n := range needles {
			n = strings.ToLower(strings.TrimSpace(n))
			if n != "" && strings.Contains(strings.ToLower(hay), n) {
				return true
			}
		}
		return false
	}

	for _, title := range titles {
		for _, company := range companies {
			for _, prof := range profiles {
				p := domain.JobPosting{Title: title, Company: company}
				want := contains(title, prof.Keywords) &&
					!contains(title, prof.BlacklistKeywords) &&
					!contains(company, prof.BlacklistCompanies)
				got := filter.Evaluate(p, prof)
				if got.Eligible != want {
					t.Errorf("title=%q company=%q profile=%+v: Eligible = %v, want %v",
						title, company, prof, got.Eligible, want)
				}
			}
		}
	}
}
