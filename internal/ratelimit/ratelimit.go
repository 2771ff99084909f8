// Package ratelimit throttles login attempts per client address using a
// fixed window counter in Redis. With no Redis configured the limiter is a
// no-op, mirroring how the rest of the server treats Redis as optional.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New returns a limiter. A nil client or non-positive limit disables it.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow reports whether another attempt from key is permitted. Redis errors
// fail open: the attempt is allowed and the error returned for logging.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true, nil
	}

	redisKey := "login_attempts:" + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= int64(l.limit), nil
}
