package bedrock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenBucket_DefaultCapacity(t *testing.T) {
	bucket := NewTokenBucket(5.0, 0)
	assert.InDelta(t, 10.0, bucket.Capacity(), 0.001, "default capacity is a two-second burst")
	assert.InDelta(t, 5.0, bucket.RefillRate(), 0.001)
}

func TestNewTokenBucket_ClampsNonPositiveRefillRate(t *testing.T) {
	for _, rate := range []float64{0, -3.0} {
		bucket := NewTokenBucket(rate, 2.0)
		assert.InDelta(t, 1.0, bucket.RefillRate(), 0.001)

		// Deficit waits must stay finite for an empty bucket.
		require.True(t, bucket.TryAcquire(2.0))
		wait := bucket.WaitTime(1.0)
		assert.Positive(t, wait)
		assert.LessOrEqual(t, wait, 2*time.Second)
	}
}

func TestTokenBucket_LevelNeverExceedsCapacity(t *testing.T) {
	bucket := NewTokenBucket(100.0, 5.0)

	// A full bucket stays at capacity no matter how much time elapses.
	time.Sleep(30 * time.Millisecond)
	assert.LessOrEqual(t, bucket.AvailableTokens(), 5.0)

	// Draining and refilling also respects the cap.
	require.True(t, bucket.TryAcquire(5.0))
	time.Sleep(120 * time.Millisecond)
	level := bucket.AvailableTokens()
	assert.LessOrEqual(t, level, 5.0)
	assert.Positive(t, level, "tokens must refill over elapsed time")
}

func TestTokenBucket_TryAcquire(t *testing.T) {
	bucket := NewTokenBucket(1.0, 2.0)

	assert.True(t, bucket.TryAcquire(2.0))
	assert.False(t, bucket.TryAcquire(1.0), "an empty bucket grants nothing")
	assert.GreaterOrEqual(t, bucket.AvailableTokens(), 0.0, "level never goes negative")
}

func TestTokenBucket_WaitTime(t *testing.T) {
	bucket := NewTokenBucket(10.0, 2.0)

	assert.Equal(t, time.Duration(0), bucket.WaitTime(1.0), "no wait while tokens are available")

	require.True(t, bucket.TryAcquire(2.0))
	wait := bucket.WaitTime(1.0)
	assert.Positive(t, wait)
	assert.LessOrEqual(t, wait, 100*time.Millisecond, "one token at 10 rps refills within 100ms")
}

func TestTokenBucket_AcquireBlocksUntilRefill(t *testing.T) {
	bucket := NewTokenBucket(50.0, 1.0)
	require.True(t, bucket.TryAcquire(1.0))

	start := time.Now()
	acquired := bucket.Acquire(context.Background(), 1.0, time.Second)
	elapsed := time.Since(start)

	assert.True(t, acquired)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond, "one token at 50 rps needs ~20ms")
}

func TestTokenBucket_AcquireTimesOut(t *testing.T) {
	// At 1 rps an empty bucket needs a full second; a 50ms timeout cannot
	// be met and Acquire reports failure without error.
	bucket := NewTokenBucket(1.0, 1.0)
	require.True(t, bucket.TryAcquire(1.0))

	start := time.Now()
	acquired := bucket.Acquire(context.Background(), 1.0, 50*time.Millisecond)

	assert.False(t, acquired)
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"an unmeetable deadline is reported without waiting it out")
}

func TestTokenBucket_AcquireHonoursContextCancellation(t *testing.T) {
	bucket := NewTokenBucket(0.1, 1.0)
	require.True(t, bucket.TryAcquire(1.0))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	assert.False(t, bucket.Acquire(ctx, 1.0, 0))
}

func TestTokenBucket_ConcurrentAcquisitionsStayConsistent(t *testing.T) {
	const workers = 20

	bucket := NewTokenBucket(1000.0, float64(workers))

	var granted atomic.Int64
	var wg sync.WaitGroup
	for range workers * 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if bucket.TryAcquire(1.0) {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	// No oversubscription: at most capacity grants from the initial fill
	// (plus a sliver of refill during the race).
	assert.LessOrEqual(t, granted.Load(), int64(workers+2))
	assert.GreaterOrEqual(t, bucket.AvailableTokens(), 0.0)
}
