package http

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/UmangBid/SagaPay/pkg/apperr"
)

// tokenBucketScript refills and takes one token atomically. Capacity equals
// the per-minute limit; refill is continuous. KEYS[1] bucket key, ARGV[1]
// capacity, ARGV[2] refill per second, ARGV[3] now (unix seconds, float).
const tokenBucketScript = `
local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local updated = tonumber(redis.call('HGET', KEYS[1], 'updated_at'))
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
if tokens == nil then tokens = capacity end
if updated == nil then updated = now end
tokens = math.min(capacity, tokens + math.max(0, now - updated) * refill)
local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'updated_at', now)
redis.call('EXPIRE', KEYS[1], 120)
return allowed`

// RateLimiter is a per-customer Redis token bucket.
type RateLimiter struct {
	client    *redis.Client
	script    *redis.Script
	perMinute int
}

// NewRateLimiter builds a limiter allowing perMinute requests per customer.
func NewRateLimiter(client *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{
		client:    client,
		script:    redis.NewScript(tokenBucketScript),
		perMinute: perMinute,
	}
}

// Allow takes one token for customerID. Cache unavailability fails open:
// losing rate limiting briefly is preferable to rejecting all traffic.
func (l *RateLimiter) Allow(ctx context.Context, customerID string) error {
	key := "tokenbucket:" + customerID
	capacity := float64(l.perMinute)
	refillPerSec := capacity / 60.0
	now := float64(time.Now().UnixNano()) / float64(time.Second)

	allowed, err := l.script.Run(ctx, l.client, []string{key},
		strconv.FormatFloat(capacity, 'f', -1, 64),
		strconv.FormatFloat(refillPerSec, 'f', -1, 64),
		strconv.FormatFloat(now, 'f', -1, 64),
	).Int()
	if err != nil {
		return nil
	}
	if allowed != 1 {
		return apperr.RateLimited("rate limit exceeded for customer %s", customerID)
	}
	return nil
}
