package run

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// UserLocker enforces the one-active-run-per-user invariant. Acquire either
// returns a release func or an *AlreadyRunningError; it never queues.
type UserLocker interface {
	Acquire(ctx context.Context, userID int64) (release func(), err error)
}

// MemoryLocks is the single-process locker.
type MemoryLocks struct {
	mu   sync.Mutex
	held map[int64]bool
}

func NewMemoryLocks() *MemoryLocks {
	return &MemoryLocks{held: make(map[int64]bool)}
}

func (l *MemoryLocks) Acquire(_ context.Context, userID int64) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[userID] {
		return nil, &AlreadyRunningError{UserID: userID}
	}
	l.held[userID] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, userID)
			l.mu.Unlock()
		})
	}, nil
}

// RedisLocks extends the exclusion across processes: the queue dispatcher and
// the run body may live in different workers. SET NX with a TTL slightly
// above the run timeout guards against a crashed holder wedging a user
// forever.
type RedisLocks struct {
	Client *redis.Client
	TTL    time.Duration
}

func (l *RedisLocks) key(userID int64) string {
	return fmt.Sprintf("applyflow:runlock:%d", userID)
}

func (l *RedisLocks) Acquire(ctx context.Context, userID int64) (func(), error) {
	ttl := l.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	ok, err := l.Client.SetNX(ctx, l.key(userID), "1", ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock user %d: %w", userID, err)
	}
	if !ok {
		return nil, &AlreadyRunningError{UserID: userID}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// release must not inherit a cancelled run context
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.Client.Del(rctx, l.key(userID)).Err()
		})
	}, nil
}
