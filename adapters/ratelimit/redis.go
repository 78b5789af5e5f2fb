package ratelimit

import (
	"context"
	"time"

	"github.com/odoodash/gateway/core"
	"github.com/odoodash/gateway/ports"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter backed by a shared Redis counter.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var allowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// NewRedisLimiter creates a new Redis-backed limiter.
func NewRedisLimiter(client *redis.Client) ports.RateLimiter {
	return &RedisLimiter{
		client: client,
		prefix: "gateway:ratelimit:",
		now:    time.Now,
	}
}

// Allow records one request for key and decides admission against the ceiling.
func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (core.RateDecision, error) {
	if limit <= 0 {
		return core.RateDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}

	result, err := allowScript.Run(ctx, r.client, []string{r.prefix + key}, windowMillis).Result()
	if err != nil {
		return core.RateDecision{}, core.ErrStoreOperationFailed
	}
	values, ok := result.([]any)
	if !ok || len(values) < 2 {
		return core.RateDecision{}, core.ErrStoreOperationFailed
	}
	current, ok := values[0].(int64)
	if !ok {
		return core.RateDecision{}, core.ErrStoreOperationFailed
	}
	ttlMillis, _ := values[1].(int64)

	resetAt := r.now()
	if ttlMillis > 0 {
		resetAt = resetAt.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}

	return core.RateDecision{
		Allowed:   current <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
