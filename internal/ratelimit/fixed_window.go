package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "careerbot:ratelimit"

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// FixedWindowLimiter counts requests per key in fixed Redis-backed windows.
type FixedWindowLimiter struct {
	name   string
	limit  int
	window time.Duration
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewFixedWindowLimiter builds a limiter for one named policy on a shared client.
func NewFixedWindowLimiter(client *redis.Client, prefix, name string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limiter requires a redis client")
	}
	if limit <= 0 || window < time.Millisecond {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("rate limiter name is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &FixedWindowLimiter{
		name:   name,
		limit:  limit,
		window: window,
		client: client,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

// Allow consumes one unit for key. Redis failures fail closed.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l == nil {
		return Decision{}, errors.New("rate limiter not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%s:%d", l.prefix, l.name, key, slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	res, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64Slice()
	if err != nil || len(res) != 2 {
		if err == nil {
			err = errors.New("unexpected limiter reply")
		}
		return Decision{RetryAfter: l.window}, fmt.Errorf("rate limit %s: %w", l.name, err)
	}
	count, ttlMs := res[0], res[1]
	d := Decision{
		Allowed:   count <= int64(l.limit),
		Remaining: max(0, l.limit-int(count)),
	}
	if !d.Allowed {
		d.RetryAfter = time.Duration(ttlMs) * time.Millisecond
		if d.RetryAfter <= 0 {
			d.RetryAfter = l.window
		}
	}
	return d, nil
}

// Name returns the policy name used in keys and logs.
func (l *FixedWindowLimiter) Name() string { return l.name }
