package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock is a best-effort mutual exclusion backed by SETNX.
type RedisLock struct {
	client *redis.Client
	prefix string
}

// NewRedisLock wraps an existing client. A nil client yields a lock that always succeeds.
func NewRedisLock(client *redis.Client, prefix string) *RedisLock {
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLock{client: client, prefix: prefix}
}

// Acquire reports whether the key was free and is now held for ttl.
func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	ok, err := l.client.SetNX(ctx, l.key(key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the key.
func (l *RedisLock) Release(ctx context.Context, key string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

func (l *RedisLock) key(key string) string {
	return fmt.Sprintf("%s:%s", l.prefix, key)
}
