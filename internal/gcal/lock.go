package gcal

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker serializes syncs per doctor.
type Locker interface {
	// Acquire blocks until the doctor's lock is held or ctx is done.
	// The returned func releases the lock.
	Acquire(ctx context.Context, doctorID string) (func(), error)
}

// NewLocker returns a Redis-backed locker when a client is configured,
// otherwise an in-process one. The in-process fallback only serializes
// within a single instance; multi-instance deployments should configure
// Redis.
func NewLocker(client *redis.Client) Locker {
	if client == nil {
		return newLocalLocker()
	}
	return &redisLocker{client: client, fallback: newLocalLocker()}
}

const (
	lockKeyPrefix = "mediconnect:sync-lock:"
	lockTTL       = 2 * time.Minute
	lockRetryWait = 100 * time.Millisecond
)

// redisLocker holds a SETNX lock with a TTL so a crashed holder cannot
// wedge the doctor forever.
type redisLocker struct {
	client   *redis.Client
	fallback *localLocker
}

func (l *redisLocker) Acquire(ctx context.Context, doctorID string) (func(), error) {
	key := lockKeyPrefix + doctorID
	for {
		ok, err := l.client.SetNX(ctx, key, "1", lockTTL).Result()
		if err != nil {
			// Redis down: degrade to in-process serialization.
			return l.fallback.Acquire(ctx, doctorID)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				l.client.Del(releaseCtx, key)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
}

// localLocker keeps one mutex per doctor.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLocalLocker() *localLocker {
	return &localLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localLocker) Acquire(ctx context.Context, doctorID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[doctorID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[doctorID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
