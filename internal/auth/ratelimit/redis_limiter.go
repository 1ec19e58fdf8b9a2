package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisLimiterKeyPrefix = "shopfront-ratelimit||"

var _ Limiter = (*RedisWindowLimiter)(nil)

// RedisWindowLimiter is the shared-state variant of the fixed window
// limiter, for deployments with more than one service instance. The
// window is the key TTL: INCR on every attempt, EXPIRE on the first.
type RedisWindowLimiter struct {
	redisClient    *redis.Client
	windowDuration time.Duration
	maxAttempts    int
}

func NewRedisWindowLimiter(
	windowDuration time.Duration,
	maxAttempts int,
	redisClient *redis.Client,
) *RedisWindowLimiter {
	return &RedisWindowLimiter{
		redisClient:    redisClient,
		windowDuration: windowDuration,
		maxAttempts:    maxAttempts,
	}
}

func (l *RedisWindowLimiter) Allow(ctx context.Context, clientKey string) (*Result, error) {
	key := redisLimiterKeyPrefix + clientKey

	count, err := l.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	if count == 1 {
		if err := l.redisClient.Expire(ctx, key, l.windowDuration).Err(); err != nil {
			return nil, err
		}
	}

	result := &Result{
		Allowed:    count <= int64(l.maxAttempts),
		RetryAfter: l.windowDuration,
	}

	if !result.Allowed {
		if ttl, err := l.redisClient.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			result.RetryAfter = ttl
		}
	}

	return result, nil
}
