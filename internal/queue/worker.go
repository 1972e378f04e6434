package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"applyflow-engine/internal/run"
)

// Starter is the dispatcher's view of the orchestrator.
type Starter interface {
	Start(ctx context.Context, userID int64) (string, error)
}

// Worker drains the queue and hands each task to the orchestrator. Start
// itself is cheap (the run body executes on the orchestrator's bounded
// pool), so one consumer loop is enough.
type Worker struct {
	Queue *Queue
	Orch  Starter
}

func (w *Worker) Run(ctx context.Context) {
	log.Printf("[queue] worker consuming %q", w.Queue.key)
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := w.Queue.rdb.BRPop(ctx, 5*time.Second, w.Queue.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			log.Printf("[queue] pop error: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		var t Task
		if err := json.Unmarshal([]byte(res[1]), &t); err != nil {
			log.Printf("[queue] dropping malformed task: %v", err)
			continue
		}

		runID, err := w.Orch.Start(ctx, t.UserID)
		if err != nil {
			var already *run.AlreadyRunningError
			if errors.As(err, &already) {
				// fine under at-least-once delivery; the active run covers it
				log.Printf("[queue] task=%s user=%d skipped: already running", t.ID, t.UserID)
				continue
			}
			log.Printf("[queue] task=%s user=%d start failed: %v", t.ID, t.UserID, err)
			continue
		}
		log.Printf("[queue] task=%s user=%d started run=%s", t.ID, t.UserID, runID)
	}
}
