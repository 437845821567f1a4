package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Count     int
	Remaining int
	Reset     time.Time
}

// counterStore is the subset of redis commands the limiter issues.
type counterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// TTL reply for a key that exists without an expiry.
const noExpiry = time.Duration(-1)

// RateLimiter is a fixed-window counter per key held in redis. Redis errors
// allow the request.
type RateLimiter struct {
	client  counterStore
	log     zerolog.Logger
	prefix  string
	timeout time.Duration
}

func NewRateLimiter(client *redis.Client, log zerolog.Logger) *RateLimiter {
	var store counterStore
	if client != nil {
		store = client
	}
	return &RateLimiter{
		client:  store,
		log:     log,
		prefix:  "launchpad:ratelimit:",
		timeout: 250 * time.Millisecond,
	}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) Decision {
	if limit <= 0 || rl.client == nil {
		return Decision{Allowed: true}
	}
	if window <= 0 {
		window = time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key
	count, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		rl.log.Warn().Err(err).Str("op", "incr").Msg("rate limiter unavailable")
		return Decision{Allowed: true}
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, redisKey, window).Err(); err != nil {
			rl.log.Warn().Err(err).Str("op", "expire").Msg("rate limiter unavailable")
		}
	}

	ttl, err := rl.client.TTL(ctx, redisKey).Result()
	if err == nil && ttl == noExpiry {
		// the first hit's EXPIRE was lost; without it the counter never resets
		if err := rl.client.Expire(ctx, redisKey, window).Err(); err != nil {
			rl.log.Warn().Err(err).Str("op", "expire").Msg("rate limiter unavailable")
		}
	}
	if err != nil || ttl <= 0 {
		ttl = window
	}

	return decide(int(count), limit, time.Now().Add(ttl))
}

func decide(count, limit int, reset time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Remaining: remaining,
		Reset:     reset,
	}
}
