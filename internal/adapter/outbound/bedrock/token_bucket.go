// Package bedrock implements the outbound adapter for AWS Bedrock model
// invocation, including the process-wide token-bucket rate limiter that
// throttles every outbound call.
package bedrock

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is a token-bucket rate limiter safe for concurrent callers.
// Tokens refill continuously at refillRate per second up to capacity;
// each granted acquisition decrements the level atomically.
//
// Invariant: 0 <= tokens <= capacity.
type TokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
}

// NewTokenBucket creates a bucket refilling at refillRate tokens per
// second. A non-positive refill rate is clamped to one token per second
// so deficit waits stay finite. A non-positive capacity defaults to
// 2*refillRate, a two-second burst allowance.
func NewTokenBucket(refillRate, capacity float64) *TokenBucket {
	if refillRate <= 0 {
		refillRate = 1
	}
	if capacity <= 0 {
		capacity = 2 * refillRate
	}
	return &TokenBucket{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// refillLocked credits tokens for elapsed wall-clock time. Callers hold mu.
func (b *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
}

// TryAcquire takes tokens immediately if available.
func (b *TokenBucket) TryAcquire(tokens float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	if tokens > b.tokens {
		return false
	}
	b.tokens -= tokens
	return true
}

// Acquire blocks until tokens are available, the timeout elapses, or ctx
// is cancelled. It never returns an error; exhausting the timeout is a
// normal outcome reported as false. A non-positive timeout means no limit.
//
// Waiting is deadline-based rather than a sleep-poll loop: each pass
// computes the exact deficit wait and sleeps on a timer, re-checking after
// it fires because a concurrent waiter may have drained the refill.
func (b *TokenBucket) Acquire(ctx context.Context, tokens float64, timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		b.mu.Lock()
		now := time.Now()
		b.refillLocked(now)
		if tokens <= b.tokens {
			b.tokens -= tokens
			b.mu.Unlock()
			return true
		}
		wait := b.waitLocked(tokens)
		b.mu.Unlock()

		if !deadline.IsZero() && now.Add(wait).After(deadline) {
			return false
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}
}

// AvailableTokens refills lazily and reports the current level.
func (b *TokenBucket) AvailableTokens() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	return b.tokens
}

// WaitTime reports how long a caller would wait for tokens to become
// available, zero when they already are.
func (b *TokenBucket) WaitTime(tokens float64) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked(time.Now())
	return b.waitLocked(tokens)
}

// waitLocked computes the deficit wait. Callers hold mu after a refill.
func (b *TokenBucket) waitLocked(tokens float64) time.Duration {
	if tokens <= b.tokens {
		return 0
	}
	seconds := (tokens - b.tokens) / b.refillRate
	return time.Duration(seconds * float64(time.Second))
}

// Capacity returns the configured bucket capacity.
func (b *TokenBucket) Capacity() float64 {
	return b.capacity
}

// RefillRate returns the configured refill rate in tokens per second.
func (b *TokenBucket) RefillRate() float64 {
	return b.refillRate
}
