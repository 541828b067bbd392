// internal/pkg/lock/lock.go
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker guards an operation identified by a key against concurrent runs.
type Locker interface {
	// TryLock acquires the lock, returning false if it is already held.
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RedisLocker implements Locker with a SET NX EX key per operation. The TTL
// bounds how long a crashed holder can block others.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// NoopLocker satisfies Locker without coordination. Used in tests and in
// single-process deployments that run the renewal sweep exactly once.
type NoopLocker struct{}

func (NoopLocker) TryLock(ctx context.Context, key string) (bool, error) { return true, nil }
func (NoopLocker) Unlock(ctx context.Context, key string) error          { return nil }
