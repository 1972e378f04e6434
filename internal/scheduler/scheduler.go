// Package scheduler wires up the cron trigger that periodically enqueues a
// run for every active profile.
package scheduler

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// UserSource lists the users eligible for a scheduled run.
type UserSource interface {
	ListActiveUserIDs(ctx context.Context) ([]int64, error)
}

// Enqueuer dispatches one run task per user.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID int64) (string, error)
}

type Scheduler struct {
	cron  *cron.Cron
	users UserSource
	queue Enqueuer
	spec  string // cron spec, e.g. "@every 6h"
}

func New(users UserSource, queue Enqueuer, spec string) *Scheduler {
	if spec == "" {
		spec = "@every 6h"
	}
	return &Scheduler{
		cron:  cron.New(),
		users: users,
		queue: queue,
		spec:  spec,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[scheduler] cron started, spec %q", s.spec)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] cron stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	users, err := s.users.ListActiveUserIDs(ctx)
	if err != nil {
		log.Printf("[scheduler] list active users: %v", err)
		return
	}
	if len(users) == 0 {
		log.Println("[scheduler] no active profiles, nothing to enqueue")
		return
	}

	enqueued := 0
	for _, userID := range users {
		if _, err := s.queue.Enqueue(ctx, userID); err != nil {
			log.Printf("[scheduler] enqueue user %d: %v", userID, err)
			continue
		}
		enqueued++
	}
	log.Printf("[scheduler] tick complete, enqueued=%d/%d", enqueued, len(users))
}
