// Package ratelimit implements a Redis-backed token bucket shared by all
// transports.  One bucket exists per key; the refill and the take run in a
// single Lua script so concurrent replicas see a consistent count.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config describes the bucket.  Capacity tokens are available up front;
// RefillTokens are added every RefillInterval.  Buckets that stay unused
// for TTL are removed by Redis.
type Config struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int64
	RetryAfter time.Duration
}

var script = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		local until_next = interval_ms - (now_ms - last_refill)
		if until_next < 0 then until_next = 0 end
		retry_after_ms = until_next
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

// Limiter takes tokens from per-key buckets.  A Limiter with a nil client
// or a disabled config allows everything.
type Limiter struct {
	cfg Config
	rdb *redis.Client
	now func() time.Time
}

// New returns a Limiter.  Non-positive settings are replaced by sane
// minimums.
func New(cfg Config, rdb *redis.Client) *Limiter {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &Limiter{cfg: cfg, rdb: rdb, now: time.Now}
}

// Active reports whether Allow consults Redis at all.
func (l *Limiter) Active() bool {
	return l != nil && l.cfg.Enabled && l.rdb != nil
}

// Allow takes one token from the bucket of key.  Redis failures are
// returned together with an allowing decision so callers fail open.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if !l.Active() {
		return Decision{Allowed: true}, nil
	}
	open := Decision{Allowed: true, Limit: l.cfg.Capacity}

	args := []interface{}{
		l.now().UnixMilli(),
		l.cfg.Capacity,
		l.cfg.RefillTokens,
		l.cfg.RefillInterval.Milliseconds(),
		int64(l.cfg.TTL / time.Second),
	}
	vals, err := script.Run(ctx, l.rdb, []string{l.cfg.Prefix + ":" + key}, args...).Result()
	if err != nil {
		return open, fmt.Errorf("rate limit script: %w", err)
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return open, fmt.Errorf("rate limit script: unexpected result %#v", vals)
	}
	return Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Limit:      l.cfg.Capacity,
		Remaining:  asInt64(arr[1]),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}, nil
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
