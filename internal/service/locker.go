package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker is a best-effort distributed guard. It backs two things: the
// payment-reference dedupe in front of repayment posting, and the scan
// leases that stop overlapping scheduler instances from double-scanning.
// The database constraints remain the hard guarantee.
type Locker interface {
	// Acquire returns true if the key was newly set
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release removes the key
	Release(ctx context.Context, key string) error
}

type redisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) Locker {
	return &redisLocker{client: client}
}

func (l *redisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, key, 1, ttl).Result()
}

func (l *redisLocker) Release(ctx context.Context, key string) error {
	return l.client.Del(ctx, key).Err()
}
