// Package portal owns the authenticated session against the job portal.
//
// A Session is a small state machine over one cookie-jarred HTTP client:
//
//	Unauthenticated → Authenticating → Authenticated → Searching
//	                                      → Paginating ⇄ Extracting → Closed
//
// with Failed reachable from any non-terminal state. Every portal round-trip
// is rate-limited and deadline-bounded; readiness is polled, never slept for.
// All portal-specific selectors and URL formats live behind the Adapter
// interface (they drift, the machine does not).
//
// A Session belongs to exactly one run and is not safe for concurrent use.
package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"

	"applyflow-engine/internal/domain"
)

type State string

const (
	StateUnauthenticated State = "UNAUTHENTICATED"
	StateAuthenticating  State = "AUTHENTICATING"
	StateAuthenticated   State = "AUTHENTICATED"
	StateSearching       State = "SEARCHING"
	StateExtracting      State = "EXTRACTING"
	StatePaginating      State = "PAGINATING"
	StateClosed          State = "CLOSED"
	StateFailed          State = "FAILED"
)

var validSessionTransitions = map[State][]State{
	StateUnauthenticated: {StateAuthenticating},
	StateAuthenticating:  {StateAuthenticated},
	StateAuthenticated:   {StateSearching},
	StateSearching:       {StateExtracting},
	StateExtracting:      {StatePaginating, StateSearching},
	StatePaginating:      {StateExtracting},
	// CLOSED and FAILED are terminal; Close and fail bypass this table
}

// Adapter isolates everything portal-specific: login and search URL formats,
// listing selectors, the authenticated-state marker, the apply endpoint.
type Adapter interface {
	Name() string
	BaseURL() string
	LoginURL() string
	LoginForm(username, password string) url.Values
	// ProbeURL is fetched after login submission until LoggedIn reports true.
	ProbeURL() string
	LoggedIn(doc *goquery.Document) bool
	// LoginRejected reports an explicit credential rejection on the probe page.
	LoginRejected(doc *goquery.Document) bool
	SearchURL(keywords []string, location string, page int) string
	// Postings extracts candidates from a listing document. Returned URLs may
	// be relative; the session resolves and canonicalizes them.
	Postings(doc *goquery.Document) ([]domain.JobPosting, []error)
	HasNextPage(doc *goquery.Document, page int) bool
	ApplyURL(p domain.JobPosting) string
	ApplyForm(p domain.JobPosting) url.Values
	ApplyConfirmed(doc *goquery.Document) bool
}

type Options struct {
	ActionTimeout time.Duration // per round-trip cap
	ReadyTimeout  time.Duration // bound on the post-login readiness poll
	ReadyInterval time.Duration // poll spacing
	ReqPerSec     float64
	Burst         int
	UserAgent     string
}

func (o *Options) defaults() {
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 20 * time.Second
	}
	if o.ReadyTimeout <= 0 {
		o.ReadyTimeout = 30 * time.Second
	}
	if o.ReadyInterval <= 0 {
		o.ReadyInterval = 500 * time.Millisecond
	}
	if o.ReqPerSec <= 0 {
		o.ReqPerSec = 1.0
	}
	if o.Burst <= 0 {
		o.Burst = 2
	}
	if o.UserAgent == "" {
		o.UserAgent = "Mozilla/5.0 (compatible; ApplyFlow/1.0)"
	}
}

type Session struct {
	adapter Adapter
	hc      *http.Client
	limiter *HostLimiter
	opts    Options

	state    State
	page     int
	doc      *goquery.Document // current listing page
	keywords []string
	location string
}

func NewSession(adapter Adapter, opts Options) (*Session, error) {
	opts.defaults()

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	return &Session{
		adapter: adapter,
		hc: &http.Client{
			Jar:     jar,
			Timeout: opts.ActionTimeout,
		},
		limiter: NewHostLimiter(opts.ReqPerSec, opts.Burst),
		opts:    opts,
		state:   StateUnauthenticated,
	}, nil
}

func (s *Session) State() State { return s.state }

func (s *Session) transition(to State) error {
	for _, allowed := range validSessionTransitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("session: invalid transition %s → %s", s.state, to)
}

// fail moves the session to FAILED and returns err unchanged. Terminal states
// stay where they are.
func (s *Session) fail(err error) error {
	if s.state != StateClosed {
		s.state = StateFailed
	}
	return err
}

// Login submits credentials, then polls the adapter's probe page until the
// authenticated marker shows up. A missed deadline or an explicit rejection
// is an AuthError; transport-level timeouts surface as NavTimeoutError.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if err := s.transition(StateAuthenticating); err != nil {
		return err
	}

	loginURL := s.adapter.LoginURL()
	if _, err := s.postForm(ctx, loginURL, s.adapter.LoginForm(username, password)); err != nil {
		return s.fail(err)
	}

	deadline := time.Now().Add(s.opts.ReadyTimeout)
	for {
		doc, err := s.get(ctx, s.adapter.ProbeURL())
		if err == nil {
			if s.adapter.LoggedIn(doc) {
				return s.transition(StateAuthenticated)
			}
			if s.adapter.LoginRejected(doc) {
				return s.fail(&AuthError{Reason: "portal rejected credentials"})
			}
		} else if ctx.Err() != nil {
			return s.fail(err)
		}

		if time.Now().After(deadline) {
			return s.fail(&AuthError{Reason: fmt.Sprintf(
				"no authenticated signal within %s", s.opts.ReadyTimeout)})
		}
		select {
		case <-ctx.Done():
			return s.fail(ctx.Err())
		case <-time.After(s.opts.ReadyInterval):
		}
	}
}

// Search navigates to the first listing page for the profile's keywords and
// location.
func (s *Session) Search(ctx context.Context, keywords []string, location string) error {
	if err := s.transition(StateSearching); err != nil {
		return err
	}

	doc, err := s.get(ctx, s.adapter.SearchURL(keywords, location, 1))
	if err != nil {
		return s.fail(err)
	}
	s.doc = doc
	s.page = 1
	s.keywords = keywords
	s.location = location
	return s.transition(StateExtracting)
}

// Postings extracts candidates from the current listing page. Postings whose
// URL cannot be canonicalized are rejected here: without a stable identity
// they cannot be deduplicated.
func (s *Session) Postings() ([]domain.JobPosting, []error) {
	if s.state != StateExtracting || s.doc == nil {
		return nil, []error{&ParseError{Reason: fmt.Sprintf("no listing page in state %s", s.state)}}
	}

	raw, errs := s.adapter.Postings(s.doc)
	out := make([]domain.JobPosting, 0, len(raw))
	for _, p := range raw {
		abs := ResolveURL(s.adapter.BaseURL(), p.URL)
		canon := CanonicalURL(abs)
		if canon == "" {
			errs = append(errs, &ParseError{Reason: fmt.Sprintf(
				"posting %q has no stable identity URL", p.Title)})
			continue
		}
		p.URL = canon
		out = append(out, p)
	}
	return out, errs
}

// NextPage advances pagination. Returns false with no error when the portal
// has no further pages, the terminal condition for the extraction loop.
func (s *Session) NextPage(ctx context.Context) (bool, error) {
	if s.state != StateExtracting || s.doc == nil {
		return false, fmt.Errorf("session: NextPage in state %s", s.state)
	}
	if !s.adapter.HasNextPage(s.doc, s.page) {
		return false, nil
	}

	if err := s.transition(StatePaginating); err != nil {
		return false, err
	}
	doc, err := s.get(ctx, s.adapter.SearchURL(s.keywords, s.location, s.page+1))
	if err != nil {
		return false, s.fail(err)
	}
	s.doc = doc
	s.page++
	return true, s.transition(StateExtracting)
}

// Apply issues the apply action for one posting and returns the confirmed job
// identity. Failures are per-posting ApplyErrors and leave the session state
// unchanged.
func (s *Session) Apply(ctx context.Context, p domain.JobPosting) (string, error) {
	if s.state != StateExtracting {
		return "", &ApplyError{JobURL: p.URL, Reason: fmt.Sprintf("session in state %s", s.state)}
	}

	doc, err := s.postForm(ctx, s.adapter.ApplyURL(p), s.adapter.ApplyForm(p))
	if err != nil {
		return "", &ApplyError{JobURL: p.URL, Reason: "submit failed", Err: err}
	}
	if !s.adapter.ApplyConfirmed(doc) {
		return "", &ApplyError{JobURL: p.URL, Reason: "portal did not confirm the application"}
	}
	return p.URL, nil
}

// Close releases the underlying session. Idempotent and mandatory on every
// exit path regardless of run outcome.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed
	s.doc = nil
	s.hc.CloseIdleConnections()
	return nil
}

func (s *Session) get(ctx context.Context, u string) (*goquery.Document, error) {
	if err := s.limiter.WaitURL(ctx, u); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", u, err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	return s.do(req)
}

func (s *Session) postForm(ctx context.Context, u string, form url.Values) (*goquery.Document, error) {
	if err := s.limiter.WaitURL(ctx, u); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", u, err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *Session) do(req *http.Request) (*goquery.Document, error) {
	res, err := s.hc.Do(req)
	if err != nil {
		return nil, classifyNavErr(req.URL.String(), err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: status %d", req.Method, req.URL, res.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", req.URL, err)
	}
	return doc, nil
}

func classifyNavErr(u string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &NavTimeoutError{URL: u, Err: err}
	}
	return fmt.Errorf("request %s: %w", u, err)
}
