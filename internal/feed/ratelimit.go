package feed

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum spacing between requests to the feed API.
// The quota is imposed by the remote service, so one instance is shared by
// everything that talks to the API within a process and pacing is global,
// not per caller.
type RateLimiter struct {
	mu        sync.Mutex
	interval  time.Duration
	lastGrant time.Time
}

// NewRateLimiter creates a limiter with the given minimum interval between
// grants. An interval of zero makes Acquire a no-op, which is what tests
// inject.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Acquire blocks until at least the configured interval has elapsed since
// the previous grant. The first call returns immediately. It only returns an
// error when the context is cancelled while waiting.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	r.mu.Lock()
	now := time.Now()
	wait := time.Duration(0)
	if !r.lastGrant.IsZero() {
		if elapsed := now.Sub(r.lastGrant); elapsed < r.interval {
			wait = r.interval - elapsed
		}
	}
	// Reserve the slot before sleeping so concurrent callers queue up
	// behind each other instead of all waking at once.
	r.lastGrant = now.Add(wait)
	r.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// Interval returns the configured minimum spacing.
func (r *RateLimiter) Interval() time.Duration {
	return r.interval
}
