package worker

import (
	"context"
	"time"
)

// Janitor periodically sweeps terminal tasks out of a pool's task map so
// long-lived processes stay bounded in memory.
type Janitor struct {
	pool     *Pool
	interval time.Duration
	maxAge   time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewJanitor creates a janitor for the pool. Zero interval or maxAge
// disables sweeping.
func NewJanitor(pool *Pool, interval, maxAge time.Duration) *Janitor {
	return &Janitor{
		pool:     pool,
		interval: interval,
		maxAge:   maxAge,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop.
func (j *Janitor) Start(ctx context.Context) {
	if j.interval <= 0 || j.maxAge <= 0 {
		close(j.done)
		return
	}

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-j.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.pool.CleanupOldTasks(ctx, j.maxAge)
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
