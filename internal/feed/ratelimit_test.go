package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_FirstAcquireIsImmediate(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)

	start := time.Now()
	err := limiter.Acquire(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiter_EnforcesSpacing(t *testing.T) {
	interval := 50 * time.Millisecond
	limiter := NewRateLimiter(interval)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))

	start := time.Now()
	require.NoError(t, limiter.Acquire(ctx))
	assert.GreaterOrEqual(t, time.Since(start), interval-5*time.Millisecond)
}

func TestRateLimiter_ZeroIntervalNeverBlocks(t *testing.T) {
	limiter := NewRateLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRateLimiter_ConcurrentCallersShareOnePace(t *testing.T) {
	interval := 20 * time.Millisecond
	limiter := NewRateLimiter(interval)

	const callers = 5
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, limiter.Acquire(context.Background()))
		}()
	}
	wg.Wait()

	// Five grants at global pacing need at least four full intervals.
	assert.GreaterOrEqual(t, time.Since(start), 4*interval-5*time.Millisecond)
}

func TestRateLimiter_AcquireHonorsCancellation(t *testing.T) {
	limiter := NewRateLimiter(time.Hour)
	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
