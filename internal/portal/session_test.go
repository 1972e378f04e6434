package portal_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"applyflow-engine/internal/domain"
	"applyflow-engine/internal/portal"
	"applyflow-engine/internal/portal/naukri"
)

func postingWithURL(u string) domain.JobPosting {
	return domain.JobPosting{Title: "Posting", URL: u}
}

// fakePortal serves just enough of the portal's surface to drive a Session
// end to end: form login with a cookie, a probe page, two listing pages and
// an apply endpoint.
type fakePortal struct {
	mu       sync.Mutex
	password string
	rejected bool // last login attempt used bad credentials
	applies  int
}

func (f *fakePortal) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/mnjuser/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", 405)
			return
		}
		_ = r.ParseForm()
		f.mu.Lock()
		ok := r.Form.Get("password") == f.password
		f.rejected = !ok
		f.mu.Unlock()
		if ok {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "authed", Path: "/"})
		}
		fmt.Fprint(w, `<html><body>redirecting</body></html>`)
	})

	mux.HandleFunc("/mnjuser/profile", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil && c.Value == "authed" {
			fmt.Fprint(w, `<html><body><div class="nI-gNb-drawer"><span class="user-name">Tester</span></div></body></html>`)
			return
		}
		f.mu.Lock()
		rejected := f.rejected
		f.mu.Unlock()
		if rejected {
			fmt.Fprint(w, `<html><body><div class="commonErrorMsg">Invalid username or password</div></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><form><input name="username"><input name="password"></form></body></html>`)
	})

	mux.HandleFunc("/python-jobs-in-noida", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<article class="jobTuple" data-url="/job-listings/python-dev-1?utm_source=listing">
  <a class="title" href="/job-listings/python-dev-1">Python Developer</a>
  <a class="subTitle">Acme</a>
  <span class="locWdth">Noida</span>
</article>
<article class="jobTuple">
  <a class="title" href="/job-listings/backend-dev-2">Backend Developer</a>
  <a class="subTitle">Globex</a>
</article>
<div class="pagination"><a class="fright" href="/python-jobs-in-noida-2">Next</a></div>
</body></html>`)
	})

	mux.HandleFunc("/python-jobs-in-noida-2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<article class="jobTuple">
  <a class="title" href="/job-listings/python-dev-3">Senior Python Developer</a>
  <a class="subTitle">Initech</a>
</article>
</body></html>`)
	})

	mux.HandleFunc("/job-listings/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", 405)
			return
		}
		f.mu.Lock()
		f.applies++
		f.mu.Unlock()
		if r.URL.Path == "/job-listings/flaky-9" {
			fmt.Fprint(w, `<html><body><div class="apply-message">Something went wrong</div></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body><div class="apply-status-header">You have successfully applied</div></body></html>`)
	})

	return mux
}

func testOptions() portal.Options {
	return portal.Options{
		ActionTimeout: 2 * time.Second,
		ReadyTimeout:  time.Second,
		ReadyInterval: 10 * time.Millisecond,
		ReqPerSec:     1000,
		Burst:         100,
	}
}

func newTestSession(t *testing.T, f *fakePortal) (*portal.Session, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)

	s, err := portal.NewSession(naukri.New(srv.URL), testOptions())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, srv
}

func TestSessionFullFlow(t *testing.T) {
	f := &fakePortal{password: "hunter2"}
	s, srv := newTestSession(t, f)
	ctx := context.Background()

	if err := s.Login(ctx, "dev@example.com", "hunter2"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.State() != portal.StateAuthenticated {
		t.Fatalf("state after login = %s", s.State())
	}

	if err := s.Search(ctx, []string{"python"}, "noida"); err != nil {
		t.Fatalf("search: %v", err)
	}

	postings, errs := s.Postings()
	if len(errs) != 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	if len(postings) != 2 {
		t.Fatalf("page 1: got %d postings, want 2", len(postings))
	}
	// Relative data-url resolved against the portal base and canonicalized.
	want := srv.URL + "/job-listings/python-dev-1"
	if postings[0].URL != want {
		t.Fatalf("posting URL = %q, want %q", postings[0].URL, want)
	}

	id, err := s.Apply(ctx, postings[0])
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if id != postings[0].URL {
		t.Fatalf("confirmed identity = %q, want %q", id, postings[0].URL)
	}

	more, err := s.NextPage(ctx)
	if err != nil || !more {
		t.Fatalf("NextPage = (%v, %v), want (true, nil)", more, err)
	}
	postings, _ = s.Postings()
	if len(postings) != 1 {
		t.Fatalf("page 2: got %d postings, want 1", len(postings))
	}

	more, err = s.NextPage(ctx)
	if err != nil {
		t.Fatalf("terminal NextPage: %v", err)
	}
	if more {
		t.Fatal("page 2 has no next link")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close must be a no-op: %v", err)
	}
}

func TestSessionLoginRejected(t *testing.T) {
	f := &fakePortal{password: "hunter2"}
	s, _ := newTestSession(t, f)

	err := s.Login(context.Background(), "dev@example.com", "wrong")
	var authErr *portal.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("got %v, want *AuthError", err)
	}
	if s.State() != portal.StateFailed {
		t.Fatalf("state = %s, want FAILED", s.State())
	}
}

func TestSessionLoginNeverReady(t *testing.T) {
	// Login succeeds at the transport level but the authenticated marker
	// never appears. Must fail within ReadyTimeout, not hang.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form></form></body></html>`)
	}))
	t.Cleanup(srv.Close)

	s, err := portal.NewSession(naukri.New(srv.URL), testOptions())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	start := time.Now()
	err = s.Login(context.Background(), "dev@example.com", "pw")
	var authErr *portal.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("got %v, want *AuthError", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("readiness poll ran %s past its bound", elapsed)
	}
}

func TestSessionApplyFailureKeepsState(t *testing.T) {
	f := &fakePortal{password: "hunter2"}
	s, srv := newTestSession(t, f)
	ctx := context.Background()

	if err := s.Login(ctx, "dev@example.com", "hunter2"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := s.Search(ctx, []string{"python"}, "noida"); err != nil {
		t.Fatalf("search: %v", err)
	}

	flaky := srv.URL + "/job-listings/flaky-9"
	_, err := s.Apply(ctx, postingWithURL(flaky))
	var applyErr *portal.ApplyError
	if !errors.As(err, &applyErr) {
		t.Fatalf("got %v, want *ApplyError", err)
	}
	// The run continues with the next posting; the session is intact.
	if s.State() != portal.StateExtracting {
		t.Fatalf("state = %s, want EXTRACTING", s.State())
	}
	if _, errs := s.Postings(); len(errs) != 0 {
		t.Fatalf("postings after failed apply: %v", errs)
	}
}

func TestSessionOperationsOutOfOrder(t *testing.T) {
	f := &fakePortal{password: "hunter2"}
	s, _ := newTestSession(t, f)
	ctx := context.Background()

	if err := s.Search(ctx, []string{"python"}, "noida"); err == nil {
		t.Fatal("search before login must fail")
	}

	s2, srv := newTestSession(t, f)
	if err := s2.Login(ctx, "dev@example.com", "hunter2"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := s2.Apply(ctx, postingWithURL(srv.URL+"/job-listings/x-1")); err == nil {
		t.Fatal("apply before search must fail")
	}
}

func TestSessionLoginCancelled(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	t.Cleanup(func() {
		close(blocked)
		srv.Close()
	})

	s, err := portal.NewSession(naukri.New(srv.URL), testOptions())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if err := s.Login(ctx, "dev@example.com", "pw"); err == nil {
		t.Fatal("cancelled login must fail")
	}
	if s.State() != portal.StateFailed {
		t.Fatalf("state = %s, want FAILED", s.State())
	}
}
