package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func newTestLimiter(client *redis.Client) *Limiter {
	return New(client, Config{
		Limit:  5,
		Window: time.Hour,
		Exempt: DefaultExempt(),
	})
}

func TestAllow_UpToLimitThenDenied(t *testing.T) {
	_, client := setupTestRedis(t)
	l := newTestLimiter(client)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		d := l.Allow(ctx, "198.51.100.7")
		if !d.Allowed {
			t.Fatalf("request %d should be admitted", i)
		}
		if d.Count != int64(i) {
			t.Errorf("request %d: count = %d", i, d.Count)
		}
	}

	d := l.Allow(ctx, "198.51.100.7")
	if d.Allowed {
		t.Error("6th request within the window must be denied")
	}
}

func TestAllow_WindowExpiryResetsQuota(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := newTestLimiter(client)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		l.Allow(ctx, "198.51.100.7")
	}
	if d := l.Allow(ctx, "198.51.100.7"); d.Allowed {
		t.Fatal("expected denial before window expiry")
	}

	mr.FastForward(time.Hour + time.Second)

	d := l.Allow(ctx, "198.51.100.7")
	if !d.Allowed {
		t.Error("admission must resume after the window elapses")
	}
	if d.Count != 1 {
		t.Errorf("expected a fresh counter, got %d", d.Count)
	}
}

func TestAllow_IndependentIdentifiers(t *testing.T) {
	_, client := setupTestRedis(t)
	l := newTestLimiter(client)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		l.Allow(ctx, "198.51.100.7")
	}

	if d := l.Allow(ctx, "198.51.100.8"); !d.Allowed {
		t.Error("an exhausted identifier must not affect others")
	}
}

func TestAllow_ExemptIdentifiers(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := newTestLimiter(client)
	ctx := context.Background()

	for _, id := range []string{"127.0.0.1", "::1", "localhost", "unknown"} {
		for i := 0; i < 20; i++ {
			d := l.Allow(ctx, id)
			if !d.Allowed {
				t.Errorf("exempt identifier %q denied on attempt %d", id, i+1)
			}
			if !d.Exempt {
				t.Errorf("expected Exempt decision for %q", id)
			}
		}
	}

	// Exempt traffic must not consume quota.
	if len(mr.Keys()) != 0 {
		t.Errorf("exempt identifiers created counters: %v", mr.Keys())
	}
}

func TestAllow_BackendDown_FailsOpen(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := newTestLimiter(client)
	mr.Close()

	d := l.Allow(context.Background(), "198.51.100.7")
	if !d.Allowed {
		t.Error("limiter must fail open when the backend is unreachable")
	}
	if !d.FailedOpen {
		t.Error("decision must report that it failed open")
	}
}

func TestAllow_ConcurrentBurstCountedCorrectly(t *testing.T) {
	_, client := setupTestRedis(t)
	l := newTestLimiter(client)
	ctx := context.Background()

	const burst = 20
	results := make(chan Decision, burst)
	for i := 0; i < burst; i++ {
		go func() { results <- l.Allow(ctx, "198.51.100.7") }()
	}

	admitted := 0
	for i := 0; i < burst; i++ {
		if d := <-results; d.Allowed {
			admitted++
		}
	}
	if admitted != 5 {
		t.Errorf("expected exactly 5 admitted from a concurrent burst, got %d", admitted)
	}
}
