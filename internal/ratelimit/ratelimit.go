// Package ratelimit provides a Redis-backed fixed-window request limiter.
//
// The counter lives in Redis so the limit holds across instances. In-memory
// token buckets drift apart the moment a second replica starts; that is the
// reason this is not a per-process limiter.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter allows or denies requests per key within a fixed window.
type Limiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// New creates a limiter allowing `limit` requests per `window` per key.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}
}

// Allow reports whether the request identified by key may proceed.
// The first hit in a window sets the expiry; subsequent hits only count.
// Errors are returned to the caller, which decides the failure policy
// (the HTTP middleware fails open).
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("ratelimit incr: %w", err)
	}

	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	return count <= l.limit, nil
}

// Noop is a limiter that always allows. Used when no Redis backend is
// configured so the middleware chain stays uniform.
type Noop struct{}

// Allow always permits the request.
func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }
