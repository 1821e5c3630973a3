package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domainerrors "medinotes/internal/domain/errors/domain"
	"medinotes/internal/domain/entity"
	"medinotes/internal/domain/valueobject"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoolConfig(maxWorkers, maxQueue, maxRetries int) Config {
	return Config{
		Workload:        "notes",
		TaskIDPrefix:    "job",
		MaxWorkers:      maxWorkers,
		MaxQueueSize:    maxQueue,
		MaxRetries:      maxRetries,
		ShutdownTimeout: 5 * time.Second,
	}
}

// blockingTask returns a TaskFunc that blocks until release is closed,
// and a started channel that receives once per invocation.
func blockingTask(started chan<- string, release <-chan struct{}) TaskFunc {
	return func(_ context.Context, task *entity.ProcessingTask) (map[string]any, error) {
		started <- task.ID()
		<-release
		return map[string]any{"ok": true}, nil
	}
}

func waitForStatus(t *testing.T, pool *Pool, taskID string, status valueobject.TaskStatus) TaskSnapshot {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snapshot, ok := pool.Task(taskID)
		require.True(t, ok, "task %s not found", taskID)
		if snapshot.Status == status {
			return snapshot
		}
		time.Sleep(5 * time.Millisecond)
	}
	snapshot, _ := pool.Task(taskID)
	t.Fatalf("task %s never reached status %s (currently %s)", taskID, status, snapshot.Status)
	return TaskSnapshot{}
}

func TestPool_SubmitAndComplete(t *testing.T) {
	pool, err := NewPool(testPoolConfig(2, 5, 0))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	snapshot, err := pool.Submit(ctx, "note-1", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
		return map[string]any{"notes_generated": 5}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.TaskStatusQueued, snapshot.Status)
	assert.Equal(t, "note-1", snapshot.NoteID)
	assert.Regexp(t, `^job_[0-9a-f]{12}$`, snapshot.ID)

	final := waitForStatus(t, pool, snapshot.ID, valueobject.TaskStatusCompleted)
	assert.Equal(t, map[string]any{"notes_generated": 5}, final.Result)
	assert.NotNil(t, final.StartedAt)
	assert.NotNil(t, final.CompletedAt)
	assert.NotNil(t, final.Duration)
	assert.Nil(t, final.ErrorMessage)
}

func TestPool_StatusesAreMonotonic(t *testing.T) {
	pool, err := NewPool(testPoolConfig(1, 5, 0))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	started := make(chan string, 1)
	release := make(chan struct{})

	snapshot, err := pool.Submit(ctx, "note-1", blockingTask(started, release))
	require.NoError(t, err)

	<-started
	mid := waitForStatus(t, pool, snapshot.ID, valueobject.TaskStatusProcessing)
	assert.NotNil(t, mid.StartedAt)

	close(release)
	waitForStatus(t, pool, snapshot.ID, valueobject.TaskStatusCompleted)
}

func TestPool_AdmissionControl(t *testing.T) {
	// Two workers, queue cap of five: five in-flight or queued tasks fill
	// the pool, a sixth submission is rejected.
	pool, err := NewPool(testPoolConfig(2, 5, 0))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	started := make(chan string, 8)
	release := make(chan struct{})

	var ids []string
	for i := range 4 {
		snapshot, submitErr := pool.Submit(ctx, "note", blockingTask(started, release))
		require.NoError(t, submitErr, "submission %d should be admitted", i+1)
		ids = append(ids, snapshot.ID)
	}
	assert.False(t, pool.IsQueueFull(), "queue must not be full at 4 of 5")

	snapshot, err := pool.Submit(ctx, "note", blockingTask(started, release))
	require.NoError(t, err, "5th submission should be admitted")
	ids = append(ids, snapshot.ID)
	assert.True(t, pool.IsQueueFull(), "queue must be full at 5 of 5")

	_, err = pool.Submit(ctx, "note", blockingTask(started, release))
	require.ErrorIs(t, err, domainerrors.ErrQueueFull, "6th submission must be rejected")

	// Two tasks are processing, three queued.
	<-started
	<-started
	stats := pool.Stats()
	assert.Equal(t, 2, stats.Processing)
	assert.Equal(t, 3, stats.Queued)
	assert.True(t, stats.QueueFull)

	// Once tasks drain, admission opens again.
	close(release)
	for _, id := range ids {
		waitForStatus(t, pool, id, valueobject.TaskStatusCompleted)
	}
	assert.False(t, pool.IsQueueFull())

	_, err = pool.Submit(ctx, "note", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
		return nil, nil
	})
	assert.NoError(t, err, "submission after drain must be admitted")
}

func TestPool_TerminalFailureStoresError(t *testing.T) {
	pool, err := NewPool(testPoolConfig(1, 5, 0))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	snapshot, err := pool.Submit(ctx, "note-1", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
		return nil, errors.New("model returned malformed output")
	})
	require.NoError(t, err)

	final := waitForStatus(t, pool, snapshot.ID, valueobject.TaskStatusFailed)
	require.NotNil(t, final.ErrorMessage)
	assert.Equal(t, "model returned malformed output", *final.ErrorMessage)
}

func TestPool_RetryBound(t *testing.T) {
	// A task that always fails with a retryable error runs exactly
	// maxRetries+1 attempts and terminates with retry_count = maxRetries+1.
	const maxRetries = 3

	config := testPoolConfig(1, 5, maxRetries)
	config.Workload = "embeddings"
	config.TaskIDPrefix = "emb"

	pool, err := NewPool(config, WithRetryClassifier(func(error) bool { return true }))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	var attempts atomic.Int64
	snapshot, err := pool.Submit(ctx, "note-1", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
		attempts.Add(1)
		return nil, errors.New("embedding service unavailable")
	})
	require.NoError(t, err)

	final := waitForStatus(t, pool, snapshot.ID, valueobject.TaskStatusFailed)
	assert.Equal(t, int64(maxRetries+1), attempts.Load())
	assert.Equal(t, maxRetries+1, final.RetryCount)
	require.NotNil(t, final.ErrorMessage)
	assert.Equal(t, "embedding service unavailable", *final.ErrorMessage)
}

func TestPool_RetryEventuallySucceeds(t *testing.T) {
	config := testPoolConfig(1, 5, 3)
	pool, err := NewPool(config, WithRetryClassifier(func(error) bool { return true }))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	var attempts atomic.Int64
	snapshot, err := pool.Submit(ctx, "note-1", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
		if attempts.Add(1) < 3 {
			return nil, errors.New("transient failure")
		}
		return map[string]any{"chunks": 7}, nil
	})
	require.NoError(t, err)

	final := waitForStatus(t, pool, snapshot.ID, valueobject.TaskStatusCompleted)
	assert.Equal(t, int64(3), attempts.Load())
	assert.Equal(t, 2, final.RetryCount)
	assert.Equal(t, map[string]any{"chunks": 7}, final.Result)
}

func TestPool_NonRetryableErrorFailsImmediately(t *testing.T) {
	config := testPoolConfig(1, 5, 3)
	pool, err := NewPool(config, WithRetryClassifier(func(error) bool { return false }))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	var attempts atomic.Int64
	snapshot, err := pool.Submit(ctx, "note-1", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
		attempts.Add(1)
		return nil, errors.New("empty note text")
	})
	require.NoError(t, err)

	waitForStatus(t, pool, snapshot.ID, valueobject.TaskStatusFailed)
	assert.Equal(t, int64(1), attempts.Load(), "non-retryable failure must not requeue")
}

func TestPool_CancelQueuedTask(t *testing.T) {
	pool, err := NewPool(testPoolConfig(1, 5, 0))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	started := make(chan string, 1)
	release := make(chan struct{})

	blocker, err := pool.Submit(ctx, "note-1", blockingTask(started, release))
	require.NoError(t, err)
	<-started

	var executed atomic.Bool
	queued, err := pool.Submit(ctx, "note-2", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
		executed.Store(true)
		return nil, nil
	})
	require.NoError(t, err)

	assert.True(t, pool.Cancel(ctx, queued.ID), "queued task must be cancellable")

	cancelled, ok := pool.Task(queued.ID)
	require.True(t, ok)
	assert.Equal(t, valueobject.TaskStatusFailed, cancelled.Status)
	require.NotNil(t, cancelled.ErrorMessage)
	assert.Equal(t, "cancelled before start", *cancelled.ErrorMessage)

	// A processing task is not cancellable, nor is a terminal one.
	assert.False(t, pool.Cancel(ctx, blocker.ID))
	assert.False(t, pool.Cancel(ctx, queued.ID))
	assert.False(t, pool.Cancel(ctx, "job_000000000000"))

	// The cancelled task must never run once workers free up.
	close(release)
	waitForStatus(t, pool, blocker.ID, valueobject.TaskStatusCompleted)
	time.Sleep(50 * time.Millisecond)
	assert.False(t, executed.Load(), "cancelled task must not execute")
}

func TestPool_CancelFreesCapacityWhileWorkersAreBusy(t *testing.T) {
	// Fill the pool with two in-flight and three queued tasks, cancel the
	// queued ones, then resubmit. The freed slots must admit new tasks
	// immediately, and Submit must return without blocking even though the
	// workers are still occupied.
	pool, err := NewPool(testPoolConfig(2, 5, 0))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	started := make(chan string, 8)
	release := make(chan struct{})

	var queuedIDs []string
	for range 5 {
		snapshot, submitErr := pool.Submit(ctx, "note", blockingTask(started, release))
		require.NoError(t, submitErr)
		queuedIDs = append(queuedIDs, snapshot.ID)
	}
	<-started
	<-started

	for _, id := range queuedIDs {
		if snapshot, ok := pool.Task(id); ok && snapshot.Status == valueobject.TaskStatusQueued {
			require.True(t, pool.Cancel(ctx, id))
		}
	}
	require.False(t, pool.IsQueueFull(), "cancellation must free admission capacity")

	submitted := make(chan error, 3)
	var resubmitted []string
	var mu sync.Mutex
	go func() {
		for range 3 {
			snapshot, submitErr := pool.Submit(ctx, "note", blockingTask(started, release))
			if submitErr == nil {
				mu.Lock()
				resubmitted = append(resubmitted, snapshot.ID)
				mu.Unlock()
			}
			submitted <- submitErr
		}
	}()

	for i := range 3 {
		select {
		case submitErr := <-submitted:
			require.NoError(t, submitErr, "resubmission %d must be admitted", i+1)
		case <-time.After(2 * time.Second):
			t.Fatal("Submit blocked after cancellations")
		}
	}

	close(release)
	mu.Lock()
	ids := append([]string(nil), resubmitted...)
	mu.Unlock()
	for _, id := range ids {
		waitForStatus(t, pool, id, valueobject.TaskStatusCompleted)
	}
}

func TestPool_CleanupOldTasks(t *testing.T) {
	pool, err := NewPool(testPoolConfig(1, 5, 0))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	done, err := pool.Submit(ctx, "note-1", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
		return nil, nil
	})
	require.NoError(t, err)
	waitForStatus(t, pool, done.ID, valueobject.TaskStatusCompleted)

	// A fresh terminal task is retained under a generous max age.
	assert.Equal(t, 0, pool.CleanupOldTasks(ctx, time.Hour))

	// With a negative max age the cutoff is in the future, so the terminal
	// task is swept.
	assert.Equal(t, 1, pool.CleanupOldTasks(ctx, -time.Second))
	_, ok := pool.Task(done.ID)
	assert.False(t, ok, "swept task must no longer be tracked")
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool, err := NewPool(testPoolConfig(1, 5, 0))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	require.NoError(t, pool.Stop(ctx))

	_, err = pool.Submit(ctx, "note-1", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, domainerrors.ErrPoolStopped)
}

func TestPool_ConcurrencyBound(t *testing.T) {
	const maxWorkers = 2

	pool, err := NewPool(testPoolConfig(maxWorkers, 10, 0))
	require.NoError(t, err)

	ctx := context.Background()
	pool.Start(ctx)
	defer pool.Stop(ctx)

	var current, peak int64
	var mu sync.Mutex

	var ids []string
	for range 8 {
		snapshot, submitErr := pool.Submit(ctx, "note", func(context.Context, *entity.ProcessingTask) (map[string]any, error) {
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			return nil, nil
		})
		require.NoError(t, submitErr)
		ids = append(ids, snapshot.ID)
	}

	for _, id := range ids {
		waitForStatus(t, pool, id, valueobject.TaskStatusCompleted)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, int64(maxWorkers), "concurrent executions must not exceed worker count")
	assert.Positive(t, peak)
}

func TestNewPool_RejectsInvalidConfig(t *testing.T) {
	_, err := NewPool(testPoolConfig(0, 5, 0))
	assert.Error(t, err)

	_, err = NewPool(testPoolConfig(3, 2, 0))
	assert.Error(t, err)

	_, err = NewPool(testPoolConfig(1, 5, -1))
	assert.Error(t, err)
}
