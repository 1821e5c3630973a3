// Package worker implements the bounded worker pools that execute
// note-processing jobs and background embeddings tasks. One generic pool
// provides admission control, lifecycle tracking, and optional
// retry-by-requeue; the two workloads differ only in configuration and in
// the task function they run.
package worker

import (
	"context"
	"sync"
	"time"

	"medinotes/internal/application/common/slogger"
	"medinotes/internal/domain/entity"
	domainerrors "medinotes/internal/domain/errors/domain"
	"medinotes/internal/domain/valueobject"
	"medinotes/internal/port/outbound"
)

const publishTimeout = 5 * time.Second

// TaskFunc is the unit of work a pool executes for one task. The returned
// map is stored as the task result on success.
type TaskFunc func(ctx context.Context, task *entity.ProcessingTask) (map[string]any, error)

// RetryClassifier reports whether a task failure is transient and worth
// requeueing. Pools with a zero retry budget never consult it.
type RetryClassifier func(err error) bool

// Config configures a Pool.
type Config struct {
	Workload        string        // "notes" or "embeddings"; used in logs, events, metrics
	TaskIDPrefix    string        // "job" or "emb"
	MaxWorkers      int
	MaxQueueSize    int           // Admission cap on count(queued)+count(processing)
	MaxRetries      int           // Requeue budget per task; 0 disables retry
	ShutdownTimeout time.Duration
}

type queuedTask struct {
	task *entity.ProcessingTask
	fn   TaskFunc
}

// Pool is a bounded worker pool with admission control. All task state is
// guarded by one coarse mutex; task bodies run outside it.
type Pool struct {
	config    Config
	retryable RetryClassifier
	publisher outbound.MessagePublisher
	metrics   *TaskMetrics

	mu        sync.Mutex
	tasks     map[string]*entity.ProcessingTask
	cancelled map[string]bool
	pending   []queuedTask
	running   bool

	wake     chan struct{}
	stop     chan struct{}
	workerWG sync.WaitGroup
}

// Option customizes a Pool.
type Option func(*Pool)

// WithRetryClassifier sets the transient-error classifier used to decide
// whether a failed task is requeued.
func WithRetryClassifier(classifier RetryClassifier) Option {
	return func(p *Pool) { p.retryable = classifier }
}

// WithPublisher enables job lifecycle event publishing.
func WithPublisher(publisher outbound.MessagePublisher) Option {
	return func(p *Pool) { p.publisher = publisher }
}

// WithMetrics enables OpenTelemetry task metrics.
func WithMetrics(metrics *TaskMetrics) Option {
	return func(p *Pool) { p.metrics = metrics }
}

// NewPool creates a pool. Workers start on Start.
func NewPool(config Config, opts ...Option) (*Pool, error) {
	if config.MaxWorkers < 1 {
		return nil, entity.NewDomainError("MaxWorkers must be at least 1", "INVALID_POOL_CONFIG")
	}
	if config.MaxQueueSize < config.MaxWorkers {
		return nil, entity.NewDomainError("MaxQueueSize must be at least MaxWorkers", "INVALID_POOL_CONFIG")
	}
	if config.MaxRetries < 0 {
		return nil, entity.NewDomainError("MaxRetries must not be negative", "INVALID_POOL_CONFIG")
	}

	pool := &Pool{
		config:    config,
		retryable: func(error) bool { return false },
		tasks:     make(map[string]*entity.ProcessingTask),
		cancelled: make(map[string]bool),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool, nil
}

// Start launches the worker goroutines.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	for i := range p.config.MaxWorkers {
		p.workerWG.Add(1)
		go p.workerLoop(ctx, i)
	}

	slogger.Info(ctx, "Worker pool started", slogger.Fields{
		"workload":       p.config.Workload,
		"max_workers":    p.config.MaxWorkers,
		"max_queue_size": p.config.MaxQueueSize,
	})
}

// Submit queues work for a note. It fails fast with domain.ErrQueueFull
// when count(queued)+count(processing) has reached the admission cap, and
// with domain.ErrPoolStopped after Stop.
func (p *Pool) Submit(ctx context.Context, noteID string, fn TaskFunc) (*TaskSnapshot, error) {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil, domainerrors.ErrPoolStopped
	}
	if p.activeCountLocked() >= p.config.MaxQueueSize {
		p.mu.Unlock()
		return nil, domainerrors.ErrQueueFull
	}

	task := entity.NewProcessingTask(p.config.TaskIDPrefix, noteID, p.config.MaxRetries)
	p.tasks[task.ID()] = task
	p.pending = append(p.pending, queuedTask{task: task, fn: fn})
	snapshot := snapshotLocked(task)
	p.mu.Unlock()

	p.signalWorkers()

	p.publishEvent(ctx, task, "")
	if p.metrics != nil {
		p.metrics.RecordSubmitted(ctx, p.config.Workload)
	}
	slogger.Info(ctx, "Task queued", slogger.Fields{
		"workload": p.config.Workload,
		"task_id":  task.ID(),
		"note_id":  noteID,
	})

	return &snapshot, nil
}

// IsQueueFull reports whether the next Submit would be rejected.
func (p *Pool) IsQueueFull() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeCountLocked() >= p.config.MaxQueueSize
}

// activeCountLocked counts tasks that occupy queue capacity.
func (p *Pool) activeCountLocked() int {
	count := 0
	for _, task := range p.tasks {
		switch task.Status() {
		case valueobject.TaskStatusQueued, valueobject.TaskStatusProcessing:
			count++
		case valueobject.TaskStatusCompleted, valueobject.TaskStatusFailed, valueobject.TaskStatusTimeout:
		}
	}
	return count
}

// Task returns a snapshot of one task, or false when unknown.
func (p *Pool) Task(taskID string) (TaskSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.tasks[taskID]
	if !ok {
		return TaskSnapshot{}, false
	}
	return snapshotLocked(task), true
}

// Tasks returns snapshots of all tracked tasks.
func (p *Pool) Tasks() []TaskSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshots := make([]TaskSnapshot, 0, len(p.tasks))
	for _, task := range p.tasks {
		snapshots = append(snapshots, snapshotLocked(task))
	}
	return snapshots
}

// Cancel cancels a task that has not started. Cancellation of a task
// already processing is not attempted; in-flight work runs to completion.
func (p *Pool) Cancel(ctx context.Context, taskID string) bool {
	p.mu.Lock()
	task, ok := p.tasks[taskID]
	if !ok || task.Status() != valueobject.TaskStatusQueued || p.cancelled[taskID] {
		p.mu.Unlock()
		return false
	}
	p.cancelled[taskID] = true
	if err := task.Fail("cancelled before start"); err != nil {
		p.mu.Unlock()
		return false
	}
	// Remove the pending entry so the freed capacity is usable at once. A
	// task already handed to a worker is caught by the cancelled check in
	// execute instead.
	for i, qt := range p.pending {
		if qt.task.ID() == taskID {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			break
		}
	}
	p.mu.Unlock()

	p.publishEvent(ctx, task, "cancelled before start")
	slogger.Info(ctx, "Task cancelled", slogger.Fields{
		"workload": p.config.Workload,
		"task_id":  taskID,
	})
	return true
}

// CleanupOldTasks removes terminal tasks whose completion is older than
// maxAge, bounding the task map. Returns the number removed.
func (p *Pool) CleanupOldTasks(ctx context.Context, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	p.mu.Lock()
	removed := 0
	for id, task := range p.tasks {
		if !task.IsTerminal() {
			continue
		}
		completedAt := task.CompletedAt()
		if completedAt != nil && completedAt.Before(cutoff) {
			delete(p.tasks, id)
			delete(p.cancelled, id)
			removed++
		}
	}
	p.mu.Unlock()

	if removed > 0 {
		slogger.Info(ctx, "Cleaned up old tasks", slogger.Fields{
			"workload": p.config.Workload,
			"removed":  removed,
		})
	}
	return removed
}

// Stats reports current pool occupancy.
func (p *Pool) Stats() QueueStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := QueueStats{
		Workload:     p.config.Workload,
		MaxWorkers:   p.config.MaxWorkers,
		MaxQueueSize: p.config.MaxQueueSize,
	}
	for _, task := range p.tasks {
		switch task.Status() {
		case valueobject.TaskStatusQueued:
			stats.Queued++
		case valueobject.TaskStatusProcessing:
			stats.Processing++
		case valueobject.TaskStatusCompleted:
			stats.Completed++
		case valueobject.TaskStatusFailed, valueobject.TaskStatusTimeout:
			stats.Failed++
		}
	}
	stats.QueueFull = stats.Queued+stats.Processing >= p.config.MaxQueueSize
	return stats
}

// Stop rejects new submissions and waits up to the configured shutdown
// timeout for in-flight tasks.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	close(p.stop)

	done := make(chan struct{})
	go func() {
		p.workerWG.Wait()
		close(done)
	}()

	timeout := p.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case <-done:
		slogger.Info(ctx, "Worker pool stopped", slogger.Field("workload", p.config.Workload))
		return nil
	case <-time.After(timeout):
		slogger.Warn(ctx, "Worker pool shutdown timed out with tasks in flight",
			slogger.Field("workload", p.config.Workload))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) workerLoop(ctx context.Context, workerID int) {
	defer p.workerWG.Done()

	for {
		select {
		case <-p.stop:
			// Pick up nothing further; pending tasks stay queued.
			return
		default:
		}

		qt, ok := p.nextTask()
		if !ok {
			select {
			case <-p.stop:
				return
			case <-p.wake:
			}
			continue
		}
		p.execute(ctx, workerID, qt)
	}
}

// nextTask pops the oldest pending task. When more remain it re-signals so
// other idle workers wake too.
func (p *Pool) nextTask() (queuedTask, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		return queuedTask{}, false
	}
	qt := p.pending[0]
	p.pending = p.pending[1:]
	if len(p.pending) > 0 {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	return qt, true
}

func (p *Pool) signalWorkers() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pool) execute(ctx context.Context, workerID int, qt queuedTask) {
	p.mu.Lock()
	if p.cancelled[qt.task.ID()] {
		p.mu.Unlock()
		return
	}
	if err := qt.task.Start(); err != nil {
		p.mu.Unlock()
		slogger.ErrorWithError(ctx, err, "Task could not start", slogger.Fields{
			"workload": p.config.Workload,
			"task_id":  qt.task.ID(),
		})
		return
	}
	p.mu.Unlock()

	slogger.Info(ctx, "Task processing", slogger.Fields{
		"workload":  p.config.Workload,
		"task_id":   qt.task.ID(),
		"note_id":   qt.task.NoteID(),
		"worker_id": workerID,
	})

	start := time.Now()
	result, err := qt.fn(ctx, qt.task)

	if err == nil {
		p.complete(ctx, qt.task, result, time.Since(start))
		return
	}
	p.handleFailure(ctx, qt, err, time.Since(start))
}

func (p *Pool) complete(ctx context.Context, task *entity.ProcessingTask, result map[string]any, elapsed time.Duration) {
	p.mu.Lock()
	completeErr := task.Complete(result)
	p.mu.Unlock()

	if completeErr != nil {
		slogger.ErrorWithError(ctx, completeErr, "Task could not complete", slogger.Fields{
			"workload": p.config.Workload,
			"task_id":  task.ID(),
		})
		return
	}

	p.publishEvent(ctx, task, "")
	if p.metrics != nil {
		p.metrics.RecordCompleted(ctx, p.config.Workload, elapsed)
	}
	slogger.Info(ctx, "Task completed", slogger.Fields{
		"workload": p.config.Workload,
		"task_id":  task.ID(),
		"duration": elapsed.String(),
	})
}

// handleFailure records the failure and either requeues the task or marks
// it terminally failed. A full queue at retry time abandons the retry.
func (p *Pool) handleFailure(ctx context.Context, qt queuedTask, taskErr error, elapsed time.Duration) {
	task := qt.task

	p.mu.Lock()
	task.RecordFailure(taskErr.Error())
	shouldRetry := p.retryable(taskErr) && task.CanRetry()

	if shouldRetry {
		if requeueErr := task.Requeue(); requeueErr != nil {
			shouldRetry = false
		}
	}
	if shouldRetry {
		if len(p.pending) < p.config.MaxQueueSize {
			p.pending = append(p.pending, qt)
			p.mu.Unlock()
			p.signalWorkers()

			if p.metrics != nil {
				p.metrics.RecordRetry(ctx, p.config.Workload, task.RetryCount())
			}
			slogger.Warn(ctx, "Task failed, requeued for retry", slogger.Fields{
				"workload":    p.config.Workload,
				"task_id":     task.ID(),
				"retry_count": task.RetryCount(),
				"max_retries": task.MaxRetries(),
				"error":       taskErr.Error(),
			})
			return
		}
		// Queue full at retry time: the retry is abandoned.
		if failErr := task.Fail("retry abandoned, queue full: " + taskErr.Error()); failErr != nil {
			slogger.ErrorWithError(ctx, failErr, "Task could not fail", slogger.Fields{
				"workload": p.config.Workload,
				"task_id":  task.ID(),
			})
		}
		p.mu.Unlock()
		p.recordTerminalFailure(ctx, task, taskErr, elapsed)
		return
	}

	if failErr := task.Fail(taskErr.Error()); failErr != nil {
		slogger.ErrorWithError(ctx, failErr, "Task could not fail", slogger.Fields{
			"workload": p.config.Workload,
			"task_id":  task.ID(),
		})
	}
	p.mu.Unlock()
	p.recordTerminalFailure(ctx, task, taskErr, elapsed)
}

func (p *Pool) recordTerminalFailure(ctx context.Context, task *entity.ProcessingTask, taskErr error, elapsed time.Duration) {
	p.publishEvent(ctx, task, taskErr.Error())
	if p.metrics != nil {
		p.metrics.RecordFailed(ctx, p.config.Workload, elapsed)
	}
	slogger.ErrorWithError(ctx, taskErr, "Task failed", slogger.Fields{
		"workload":    p.config.Workload,
		"task_id":     task.ID(),
		"note_id":     task.NoteID(),
		"retry_count": task.RetryCount(),
	})
}

// publishEvent publishes a lifecycle event, best effort.
func (p *Pool) publishEvent(ctx context.Context, task *entity.ProcessingTask, errMsg string) {
	if p.publisher == nil {
		return
	}

	event := outbound.JobEvent{
		JobID:      task.ID(),
		NoteID:     task.NoteID(),
		Status:     task.Status().String(),
		Workload:   p.config.Workload,
		Error:      errMsg,
		RetryCount: task.RetryCount(),
		OccurredAt: time.Now(),
	}

	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.publisher.PublishJobEvent(publishCtx, event); err != nil {
		slogger.WarnNoCtx("Failed to publish job event", slogger.Fields{
			"workload": p.config.Workload,
			"task_id":  task.ID(),
			"error":    err.Error(),
		})
	}
}

// TaskSnapshot is an immutable copy of a task's state, safe to read
// without the pool lock.
type TaskSnapshot struct {
	ID           string
	NoteID       string
	Status       valueobject.TaskStatus
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage *string
	Result       map[string]any
	RetryCount   int
	MaxRetries   int
	Duration     *time.Duration
}

// QueueStats describes pool occupancy.
type QueueStats struct {
	Workload     string
	MaxWorkers   int
	MaxQueueSize int
	Queued       int
	Processing   int
	Completed    int
	Failed       int
	QueueFull    bool
}

func snapshotLocked(task *entity.ProcessingTask) TaskSnapshot {
	snapshot := TaskSnapshot{
		ID:         task.ID(),
		NoteID:     task.NoteID(),
		Status:     task.Status(),
		CreatedAt:  task.CreatedAt(),
		Result:     task.Result(),
		RetryCount: task.RetryCount(),
		MaxRetries: task.MaxRetries(),
		Duration:   task.Duration(),
	}
	if startedAt := task.StartedAt(); startedAt != nil {
		t := *startedAt
		snapshot.StartedAt = &t
	}
	if completedAt := task.CompletedAt(); completedAt != nil {
		t := *completedAt
		snapshot.CompletedAt = &t
	}
	if errMsg := task.ErrorMessage(); errMsg != nil {
		msg := *errMsg
		snapshot.ErrorMessage = &msg
	}
	return snapshot
}
