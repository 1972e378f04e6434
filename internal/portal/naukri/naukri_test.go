package naukri

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// listingHTML mirrors the job tuple markup served on naukri listing pages:
// article.jobTuple cards with a data-url identity and title/subTitle anchors.
const listingHTML = `<!doctype html>
<html><body>
<div class="list">
  <article class="jobTuple" data-url="https://www.example-portal.com/job-listings/python-developer-101">
    <a class="title" href="/job-listings/python-developer-101">Python Developer</a>
    <a class="subTitle" href="/acme">Acme Corp</a>
    <span class="locWdth">Noida</span>
    <span class="expwdth">2-4 Yrs</span>
  </article>
  <article class="jobTuple">
    <a class="title" href="/job-listings/django-engineer-102">Django  Engineer</a>
    <a class="subTitle" href="/globex">Globex</a>
    <span class="location">Remote</span>
    <span class="experience">0-2 Yrs</span>
  </article>
  <article class="jobTuple" data-url="https://www.example-portal.com/job-listings/broken-103">
    <a class="subTitle" href="/initech">Initech</a>
  </article>
</div>
<div class="pagination">
  <a class="fleft" href="/python-jobs">1</a>
  <a class="fright" href="/python-jobs-2">Next</a>
</div>
</body></html>`

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestPostings(t *testing.T) {
	a := New("https://www.example-portal.com")
	postings, errs := a.Postings(docFrom(t, listingHTML))

	if len(postings) != 2 {
		t.Fatalf("got %d postings, want 2", len(postings))
	}
	if len(errs) != 1 {
		t.Fatalf("got %d parse errors, want 1 (the titleless card)", len(errs))
	}

	first := postings[0]
	if first.Title != "Python Developer" {
		t.Errorf("title = %q", first.Title)
	}
	if first.Company != "Acme Corp" {
		t.Errorf("company = %q", first.Company)
	}
	if first.Location != "Noida" {
		t.Errorf("location = %q", first.Location)
	}
	if first.Experience != "2-4 Yrs" {
		t.Errorf("experience = %q", first.Experience)
	}
	if first.URL != "https://www.example-portal.com/job-listings/python-developer-101" {
		t.Errorf("url = %q, want the data-url value", first.URL)
	}

	// No data-url: falls back to the title anchor href, whitespace collapsed.
	second := postings[1]
	if second.Title != "Django Engineer" {
		t.Errorf("title = %q, want collapsed whitespace", second.Title)
	}
	if second.URL != "/job-listings/django-engineer-102" {
		t.Errorf("url = %q, want title href fallback", second.URL)
	}
}

func TestSearchURL(t *testing.T) {
	a := New("https://www.example-portal.com/")

	cases := []struct {
		name     string
		keywords []string
		location string
		page     int
		want     string
	}{
		{
			name:     "keywords and location",
			keywords: []string{"python", "developer"},
			location: "New Delhi",
			page:     1,
			want:     "https://www.example-portal.com/python-developer-jobs-in-new-delhi",
		},
		{
			name:     "page suffix past the first",
			keywords: []string{"golang"},
			location: "remote",
			page:     3,
			want:     "https://www.example-portal.com/golang-jobs-in-remote-3",
		},
		{
			name:     "no location",
			keywords: []string{"data science"},
			location: "",
			page:     1,
			want:     "https://www.example-portal.com/data-science-jobs",
		},
		{
			name:     "empty keywords fall back to the generic listing",
			keywords: nil,
			location: "pune",
			page:     1,
			want:     "https://www.example-portal.com/jobs-jobs-in-pune",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.SearchURL(tc.keywords, tc.location, tc.page); got != tc.want {
				t.Fatalf("SearchURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHasNextPage(t *testing.T) {
	a := New("https://www.example-portal.com")

	if !a.HasNextPage(docFrom(t, listingHTML), 1) {
		t.Fatal("fixture has a next link")
	}

	last := `<div class="pagination"><a class="fright disabled" href="#">Next</a></div>`
	if a.HasNextPage(docFrom(t, last), 2) {
		t.Fatal("disabled next link must terminate pagination")
	}

	none := `<div class="list"></div>`
	if a.HasNextPage(docFrom(t, none), 1) {
		t.Fatal("no pagination block means no next page")
	}
}

func TestLoginMarkers(t *testing.T) {
	a := New("https://www.example-portal.com")

	authed := `<div class="nI-gNb-drawer"><span class="user-name">R. Sharma</span></div>`
	if !a.LoggedIn(docFrom(t, authed)) {
		t.Fatal("account drawer must read as logged in")
	}
	anon := `<form id="login"><input name="username"><input name="password"></form>`
	if a.LoggedIn(docFrom(t, anon)) {
		t.Fatal("login form must not read as logged in")
	}

	rejected := `<div class="commonErrorMsg">Invalid username or password</div>`
	if !a.LoginRejected(docFrom(t, rejected)) {
		t.Fatal("error banner must read as rejected")
	}
	if a.LoginRejected(docFrom(t, anon)) {
		t.Fatal("plain login form is not a rejection")
	}
}

func TestApplyConfirmed(t *testing.T) {
	a := New("https://www.example-portal.com")

	ok := `<div class="apply-status-header">You have successfully applied to this job</div>`
	if !a.ApplyConfirmed(docFrom(t, ok)) {
		t.Fatal("confirmation banner must read as applied")
	}
	nope := `<div class="apply-message">Something went wrong, try again</div>`
	if a.ApplyConfirmed(docFrom(t, nope)) {
		t.Fatal("failure banner must not read as applied")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Python Developer":   "python-developer",
		"C++ / Systems":      "c-systems",
		"  New   Delhi  ":    "new-delhi",
		"remote":             "remote",
		"":                   "",
		"!!!":                "",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
