// Package ratelimit gates subscribe requests per client identifier using a
// shared Redis counter with a fixed expiring window.
//
// This is a fixed-window limiter, not sliding-window: a burst can straddle
// a window boundary (5 requests at second 3599, 5 more at 3601). That is an
// accepted tradeoff; document it if this is ever replaced with a sliding
// algorithm.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/newsletter-service/internal/pkg/logger"
)

// Decision is the outcome of one admission check. FailedOpen tells the
// caller that the backend was unreachable and the request was admitted
// without consuming quota — availability over strict enforcement.
type Decision struct {
	Allowed    bool
	Exempt     bool
	FailedOpen bool
	Count      int64
}

// incrWithExpiry atomically increments the counter and, only when the
// increment created the key, starts its expiry window. Running it as a Lua
// script keeps concurrent bursts from the same identifier counted correctly;
// a client-side GET → INCR → EXPIRE sequence would race.
const incrWithExpiry = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
    redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

// Limiter admits or denies requests against a shared Redis backend.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script

	limit     int64
	window    time.Duration
	keyPrefix string
	exempt    map[string]struct{}
}

// Config holds limiter tunables.
type Config struct {
	// Limit is the number of admitted requests per identifier per window.
	Limit int64
	// Window is the fixed counting window.
	Window time.Duration
	// KeyPrefix namespaces the Redis keys.
	KeyPrefix string
	// Exempt identifiers are always admitted without consuming quota
	// (loopback and unknown-origin markers).
	Exempt []string
}

// New creates a limiter with a pre-compiled Lua script.
func New(client *redis.Client, cfg Config) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "rate_limit:newsletter"
	}
	exempt := make(map[string]struct{}, len(cfg.Exempt))
	for _, id := range cfg.Exempt {
		exempt[id] = struct{}{}
	}
	return &Limiter{
		redis:     client,
		script:    redis.NewScript(incrWithExpiry),
		limit:     cfg.Limit,
		window:    cfg.Window,
		keyPrefix: cfg.KeyPrefix,
		exempt:    exempt,
	}
}

// DefaultExempt covers loopback traffic and requests whose origin could not
// be determined.
func DefaultExempt() []string {
	return []string{"127.0.0.1", "::1", "localhost", "unknown"}
}

// Allow checks and consumes quota for one request from identifier.
// If Redis is unreachable it fails open: the request is admitted and the
// decision carries FailedOpen so callers can surface the degradation.
func (l *Limiter) Allow(ctx context.Context, identifier string) Decision {
	if _, ok := l.exempt[identifier]; ok {
		return Decision{Allowed: true, Exempt: true}
	}

	key := fmt.Sprintf("%s:%s", l.keyPrefix, identifier)
	count, err := l.script.Run(ctx, l.redis, []string{key}, int(l.window/time.Second)).Int64()
	if err != nil {
		logger.Warn("rate limit backend unreachable, failing open",
			"identifier", identifier, "error", err)
		return Decision{Allowed: true, FailedOpen: true}
	}

	return Decision{Allowed: count <= l.limit, Count: count}
}

// Close releases the Redis connection.
func (l *Limiter) Close() error {
	return l.redis.Close()
}
