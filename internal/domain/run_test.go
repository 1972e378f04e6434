package domain_test

import (
	"testing"

	"applyflow-engine/internal/domain"
)

func TestParseRunStatus_ValidValues(t *testing.T) {
	valid := []string{"PENDING", "RUNNING", "SUCCEEDED", "FAILED", "CANCELLED"}
	for _, s := range valid {
		got, err := domain.ParseRunStatus(s)
		if err != nil {
			t.Errorf("ParseRunStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseRunStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseRunStatus_InvalidValue(t *testing.T) {
	if _, err := domain.ParseRunStatus("DONE"); err == nil {
		t.Error("ParseRunStatus(\"DONE\") expected error, got nil")
	}
	if _, err := domain.ParseRunStatus(""); err == nil {
		t.Error("ParseRunStatus(\"\") expected error, got nil")
	}
}

func TestRunTransitions_Valid(t *testing.T) {
	cases := []struct {
		from domain.RunStatus
		to   domain.RunStatus
	}{
		{domain.RunPending, domain.RunRunning},
		{domain.RunPending, domain.RunFailed},
		{domain.RunPending, domain.RunCancelled},
		{domain.RunRunning, domain.RunSucceeded},
		{domain.RunRunning, domain.RunFailed},
		{domain.RunRunning, domain.RunCancelled},
	}
	for _, c := range cases {
		if !domain.IsRunTransitionAllowed(c.from, c.to) {
			t.Errorf("IsRunTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

func TestRunTransitions_FromTerminal(t *testing.T) {
	terminals := []domain.RunStatus{domain.RunSucceeded, domain.RunFailed, domain.RunCancelled}
	targets := []domain.RunStatus{
		domain.RunPending, domain.RunRunning,
		domain.RunSucceeded, domain.RunFailed, domain.RunCancelled,
	}
	for _, from := range terminals {
		if !from.Terminal() {
			t.Errorf("%s.Terminal() should be true", from)
		}
		for _, to := range targets {
			if domain.IsRunTransitionAllowed(from, to) {
				t.Errorf("IsRunTransitionAllowed(%s → %s) should be false (terminal state)", from, to)
			}
		}
	}
}

func TestRunTransitions_SkipPending(t *testing.T) {
	// a run may not succeed without ever having run
	if domain.IsRunTransitionAllowed(domain.RunPending, domain.RunSucceeded) {
		t.Error("IsRunTransitionAllowed(PENDING → SUCCEEDED) should be false")
	}
}

func TestRunSummary(t *testing.T) {
	r := domain.Run{
		ID:     "r1",
		UserID: 7,
		Counters: domain.RunCounters{
			Discovered: 10, FilteredOut: 4, Applied: 3, Skipped: 2, Errored: 1,
		},
	}
	s := r.Summary()
	if s.RunID != "r1" || s.UserID != 7 || s.Applied != 3 || s.Skipped != 2 || s.Errored != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}
