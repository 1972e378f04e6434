package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type staticUsers struct {
	ids []int64
	err error
}

func (s *staticUsers) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	return s.ids, s.err
}

type recordingQueue struct {
	mu       sync.Mutex
	enqueued []int64
	failFor  map[int64]bool
}

func (q *recordingQueue) Enqueue(ctx context.Context, userID int64) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failFor[userID] {
		return "", errors.New("queue down")
	}
	q.enqueued = append(q.enqueued, userID)
	return "task-1", nil
}

func TestTickEnqueuesActiveUsers(t *testing.T) {
	q := &recordingQueue{}
	s := New(&staticUsers{ids: []int64{1, 2, 3}}, q, "@every 6h")

	s.tick(context.Background())

	if len(q.enqueued) != 3 {
		t.Fatalf("enqueued %v, want all three users", q.enqueued)
	}
}

func TestTickContinuesPastEnqueueFailures(t *testing.T) {
	q := &recordingQueue{failFor: map[int64]bool{2: true}}
	s := New(&staticUsers{ids: []int64{1, 2, 3}}, q, "")

	s.tick(context.Background())

	if len(q.enqueued) != 2 || q.enqueued[0] != 1 || q.enqueued[1] != 3 {
		t.Fatalf("enqueued %v, want [1 3]", q.enqueued)
	}
}

func TestTickUserSourceFailure(t *testing.T) {
	q := &recordingQueue{}
	s := New(&staticUsers{err: errors.New("db locked")}, q, "")

	s.tick(context.Background())

	if len(q.enqueued) != 0 {
		t.Fatalf("enqueued %v on a failed listing", q.enqueued)
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(&staticUsers{}, &recordingQueue{}, "not a cron spec")
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("invalid spec must fail")
	}
}
