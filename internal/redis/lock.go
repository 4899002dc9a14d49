package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a lock could not be acquired within the wait budget.
var ErrLockTimeout = errors.New("lock wait timed out")

const lockRetryInterval = 25 * time.Millisecond

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed per-entity locking in Redis.
type LockStore struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewLockStore creates a new LockStore. ttl bounds how long a crashed holder
// blocks others; wait bounds how long Lock retries before giving up.
func NewLockStore(client *redis.Client, ttl, wait time.Duration) *LockStore {
	return &LockStore{client: client, ttl: ttl, wait: wait}
}

// Lock blocks until the lock for key is acquired, the wait budget runs out
// or ctx is done. The returned unlock is safe to call more than once.
func (s *LockStore) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKey(key)
	token := uuid.New().String()

	deadline := time.NewTimer(s.wait)
	defer deadline.Stop()
	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := s.client.SetNX(ctx, redisKey, token, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release even when the caller's context is already cancelled.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, s.client, []string{redisKey}, token).Err()
		})
	}, nil
}

func lockKey(key string) string {
	return "lock:" + key
}
