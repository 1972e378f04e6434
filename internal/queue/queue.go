// Package queue dispatches runs off the request path through a redis list.
// Delivery is at-least-once: the pipeline itself is idempotent (the dedup
// ledger and the per-user lock), so a redelivered task is harmless.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Task struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

type Queue struct {
	rdb *redis.Client
	key string
}

func New(rdb *redis.Client, key string) *Queue {
	if key == "" {
		key = "applyflow:runs"
	}
	return &Queue{rdb: rdb, key: key}
}

// Enqueue pushes a run task for one user and returns the task handle.
func (q *Queue) Enqueue(ctx context.Context, userID int64) (string, error) {
	t := Task{
		ID:         uuid.NewString(),
		UserID:     userID,
		EnqueuedAt: time.Now().UTC(),
	}
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	if err := q.rdb.LPush(ctx, q.key, b).Err(); err != nil {
		return "", fmt.Errorf("enqueue user %d: %w", userID, err)
	}
	return t.ID, nil
}
