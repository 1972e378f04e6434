// Package naukri is the portal adapter for naukri.com. Everything here
// (selectors, URL formats, the logged-in marker) tracks the live site and is
// expected to drift; nothing outside this package may depend on it.
package naukri

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/portal"
)

type Adapter struct {
	base string
}

// New returns an adapter rooted at baseURL (https://www.naukri.com in
// production, an httptest server in tests).
func New(baseURL string) *Adapter {
	return &Adapter{base: strings.TrimRight(baseURL, "/")}
}

func (a *Adapter) Name() string    { return "naukri" }
func (a *Adapter) BaseURL() string { return a.base }

func (a *Adapter) LoginURL() string { return a.base + "/mnjuser/login" }

func (a *Adapter) LoginForm(username, password string) url.Values {
	return url.Values{
		"username": {username},
		"password": {password},
	}
}

func (a *Adapter) ProbeURL() string { return a.base + "/mnjuser/profile" }

// LoggedIn looks for the account drawer that only renders for an
// authenticated session.
func (a *Adapter) LoggedIn(doc *goquery.Document) bool {
	return doc.Find(".user-name, .nI-gNb-drawer").Length() > 0
}

func (a *Adapter) LoginRejected(doc *goquery.Document) bool {
	msg := strings.ToLower(doc.Find(".commonErrorMsg, .erLbl").Text())
	return strings.Contains(msg, "invalid") || strings.Contains(msg, "incorrect")
}

// SearchURL builds the slug-style listing URL, e.g.
// /python-developer-jobs-in-noida, with a -N suffix for pages past the first.
func (a *Adapter) SearchURL(keywords []string, location string, page int) string {
	kw := slugify(strings.Join(keywords, " "))
	if kw == "" {
		kw = "jobs"
	}
	path := fmt.Sprintf("/%s-jobs", kw)
	if loc := slugify(location); loc != "" {
		path += "-in-" + loc
	}
	if page > 1 {
		path += fmt.Sprintf("-%d", page)
	}
	return a.base + path
}

// Postings extracts job tuples from a listing page. A tuple without a
// data-url (or title link href) has no stable identity and is reported as a
// parse error by the caller via its empty URL.
func (a *Adapter) Postings(doc *goquery.Document) ([]domain.JobPosting, []error) {
	var out []domain.JobPosting
	var errs []error

	doc.Find("article.jobTuple").Each(func(i int, card *goquery.Selection) {
		title := cleanText(card.Find("a.title").First().Text())
		if title == "" {
			errs = append(errs, &portal.ParseError{
				Reason: fmt.Sprintf("job tuple %d has no title", i)})
			return
		}

		jobURL, ok := card.Attr("data-url")
		if !ok || strings.TrimSpace(jobURL) == "" {
			jobURL, _ = card.Find("a.title").First().Attr("href")
		}

		out = append(out, domain.JobPosting{
			Title:      title,
			Company:    cleanText(card.Find("a.subTitle").First().Text()),
			Location:   cleanText(card.Find(".locWdth, .location").First().Text()),
			Experience: cleanText(card.Find(".expwdth, .experience").First().Text()),
			URL:        strings.TrimSpace(jobURL),
		})
	})

	return out, errs
}

func (a *Adapter) HasNextPage(doc *goquery.Document, page int) bool {
	next := doc.Find(`.pagination a.fright, a[rel="next"]`).First()
	if next.Length() == 0 {
		return false
	}
	return !next.HasClass("disabled")
}

func (a *Adapter) ApplyURL(p domain.JobPosting) string { return p.URL }

func (a *Adapter) ApplyForm(p domain.JobPosting) url.Values {
	return url.Values{"action": {"apply"}}
}

func (a *Adapter) ApplyConfirmed(doc *goquery.Document) bool {
	msg := strings.ToLower(doc.Find(".apply-status-header, .apply-message").Text())
	return strings.Contains(msg, "applied")
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true // suppress leading dashes
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}
