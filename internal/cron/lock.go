package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = time.Hour

// Lock serializes runs of the same job across worker instances.
type Lock interface {
	// Acquire returns an owner token when the lock was taken.
	Acquire(ctx context.Context, job string) (string, bool, error)
	Release(ctx context.Context, job, token string) error
}

// redisStore defines the operations used by RedisLock.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLock implements Lock using Redis SETNX + TTL, one key per job.
type RedisLock struct {
	client redisStore
	prefix string
	ttl    time.Duration
}

// NewRedisLock constructs a Redis-backed lock. The prefix usually names the
// environment so staging and production workers never contend.
func NewRedisLock(client redisStore, prefix string, ttl time.Duration) (*RedisLock, error) {
	if client == nil {
		return nil, errors.New("redis client required for lock")
	}
	if prefix == "" {
		return nil, errors.New("lock prefix is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{client: client, prefix: prefix, ttl: ttl}, nil
}

func (l *RedisLock) key(job string) string {
	return l.client.LockKey(l.prefix + ":" + job)
}

// Acquire tries to own the job lock for the configured TTL.
func (l *RedisLock) Acquire(ctx context.Context, job string) (string, bool, error) {
	owner := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key(job), owner, l.ttl)
	if err != nil {
		return "", false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return owner, true, nil
}

// Release frees the lock only if token still owns it.
func (l *RedisLock) Release(ctx context.Context, job, token string) error {
	if token == "" {
		return nil
	}
	key := l.key(job)
	value, err := l.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != token {
		return nil
	}
	if err := l.client.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
