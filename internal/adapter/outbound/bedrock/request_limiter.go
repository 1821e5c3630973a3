package bedrock

import (
	"context"
	"sync"
	"time"

	"medinotes/internal/application/common/slogger"
)

const defaultAcquireTimeout = 30 * time.Second

// rateLimitedThreshold separates "token was immediately available" from a
// real wait when classifying a request as rate limited.
const rateLimitedThreshold = time.Millisecond

// RequestLimiter applies a TokenBucket with one-call-one-token semantics
// and tracks aggregate throttling statistics. The bucket state and the
// stats are guarded by separate locks; callers must not assume atomicity
// between an acquisition and its stats update, only that each is
// individually consistent.
type RequestLimiter struct {
	bucket  *TokenBucket
	timeout time.Duration

	statsMu          sync.Mutex
	totalRequests    int64
	totalWait        time.Duration
	maxWait          time.Duration
	rateLimitedCount int64
}

// RateLimiterStats is a point-in-time view of the limiter's counters.
type RateLimiterStats struct {
	TotalRequests         int64
	TotalWaitTime         time.Duration
	MaxWaitTime           time.Duration
	AvgWaitTime           time.Duration
	RateLimitedCount      int64
	RateLimitedPercentage float64
	CurrentAvailable      float64
	ConfiguredRPS         float64
}

// NewRequestLimiter creates a limiter allowing rps requests per second
// with the given burst capacity (non-positive capacity defaults to 2*rps).
// acquireTimeout bounds how long AcquireForRequest blocks; non-positive
// falls back to 30 seconds.
func NewRequestLimiter(rps, burstCapacity float64, acquireTimeout time.Duration) *RequestLimiter {
	if acquireTimeout <= 0 {
		acquireTimeout = defaultAcquireTimeout
	}
	return &RequestLimiter{
		bucket:  NewTokenBucket(rps, burstCapacity),
		timeout: acquireTimeout,
	}
}

// AcquireForRequest blocks until a request slot is available or the
// configured timeout elapses. Every call is counted and its wait time
// accumulated regardless of outcome; a false return means the caller must
// reject the outbound request, not proceed unthrottled.
func (l *RequestLimiter) AcquireForRequest(ctx context.Context) bool {
	start := time.Now()
	acquired := l.bucket.Acquire(ctx, 1, l.timeout)
	waited := time.Since(start)

	l.statsMu.Lock()
	l.totalRequests++
	l.totalWait += waited
	if waited > l.maxWait {
		l.maxWait = waited
	}
	if waited > rateLimitedThreshold {
		l.rateLimitedCount++
	}
	l.statsMu.Unlock()

	if !acquired {
		slogger.Warn(ctx, "Rate limiter acquisition timed out", slogger.Fields{
			"waited":  waited.String(),
			"timeout": l.timeout.String(),
		})
	}
	return acquired
}

// ResetStats zeroes the aggregate counters. The bucket level is left
// alone so throttling behaviour is unaffected.
func (l *RequestLimiter) ResetStats() {
	l.statsMu.Lock()
	l.totalRequests = 0
	l.totalWait = 0
	l.maxWait = 0
	l.rateLimitedCount = 0
	l.statsMu.Unlock()
}

// Stats returns aggregate throttling statistics.
func (l *RequestLimiter) Stats() RateLimiterStats {
	l.statsMu.Lock()
	stats := RateLimiterStats{
		TotalRequests:    l.totalRequests,
		TotalWaitTime:    l.totalWait,
		MaxWaitTime:      l.maxWait,
		RateLimitedCount: l.rateLimitedCount,
	}
	if l.totalRequests > 0 {
		stats.AvgWaitTime = l.totalWait / time.Duration(l.totalRequests)
		stats.RateLimitedPercentage = 100 * float64(l.rateLimitedCount) / float64(l.totalRequests)
	}
	l.statsMu.Unlock()

	stats.CurrentAvailable = l.bucket.AvailableTokens()
	stats.ConfiguredRPS = l.bucket.RefillRate()
	return stats
}
