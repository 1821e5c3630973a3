package entity

import (
	"fmt"
	"strings"
	"time"

	"medinotes/internal/domain/valueobject"

	"github.com/google/uuid"
)

const taskIDLength = 12

// ProcessingTask represents an asynchronous unit of work over a clinical
// note: either a full note-processing job or an embeddings-generation task.
// The two workloads share one lifecycle; retry is enabled by a nonzero
// maxRetries.
type ProcessingTask struct {
	id          string
	noteID      string
	status      valueobject.TaskStatus
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
	errorMsg    *string
	result      map[string]any
	retryCount  int
	maxRetries  int
}

// NewProcessingTask creates a new ProcessingTask in the queued state.
// The prefix distinguishes workloads in logs and APIs ("job", "emb").
func NewProcessingTask(prefix, noteID string, maxRetries int) *ProcessingTask {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return &ProcessingTask{
		id:         fmt.Sprintf("%s_%s", prefix, raw[:taskIDLength]),
		noteID:     noteID,
		status:     valueobject.TaskStatusQueued,
		createdAt:  time.Now(),
		maxRetries: maxRetries,
	}
}

// ID returns the task ID.
func (t *ProcessingTask) ID() string {
	return t.id
}

// NoteID returns the note the task operates on.
func (t *ProcessingTask) NoteID() string {
	return t.noteID
}

// Status returns the current task status.
func (t *ProcessingTask) Status() valueobject.TaskStatus {
	return t.status
}

// CreatedAt returns the creation timestamp.
func (t *ProcessingTask) CreatedAt() time.Time {
	return t.createdAt
}

// StartedAt returns the start timestamp of the most recent attempt.
func (t *ProcessingTask) StartedAt() *time.Time {
	return t.startedAt
}

// CompletedAt returns the terminal timestamp.
func (t *ProcessingTask) CompletedAt() *time.Time {
	return t.completedAt
}

// ErrorMessage returns the last recorded error, if any.
func (t *ProcessingTask) ErrorMessage() *string {
	return t.errorMsg
}

// Result returns the stored result for a completed task.
func (t *ProcessingTask) Result() map[string]any {
	return t.result
}

// RetryCount returns the number of recorded failures so far.
func (t *ProcessingTask) RetryCount() int {
	return t.retryCount
}

// MaxRetries returns the configured retry budget.
func (t *ProcessingTask) MaxRetries() int {
	return t.maxRetries
}

// IsTerminal returns true if the task is in a terminal state.
func (t *ProcessingTask) IsTerminal() bool {
	return t.status.IsTerminal()
}

// Duration returns the task duration if it ran to a terminal state.
func (t *ProcessingTask) Duration() *time.Duration {
	if t.startedAt == nil || t.completedAt == nil {
		return nil
	}
	duration := t.completedAt.Sub(*t.startedAt)
	return &duration
}

// Start marks the task as processing.
func (t *ProcessingTask) Start() error {
	if !t.status.CanTransitionTo(valueobject.TaskStatusProcessing) {
		return NewDomainError("cannot start task in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	t.status = valueobject.TaskStatusProcessing
	t.startedAt = &now
	return nil
}

// Complete marks the task as completed with its result.
func (t *ProcessingTask) Complete(result map[string]any) error {
	if !t.status.CanTransitionTo(valueobject.TaskStatusCompleted) {
		return NewDomainError("cannot complete task in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	t.status = valueobject.TaskStatusCompleted
	t.completedAt = &now
	t.result = result
	t.errorMsg = nil
	return nil
}

// Fail marks the task as terminally failed with an error message.
func (t *ProcessingTask) Fail(errorMessage string) error {
	if !t.status.CanTransitionTo(valueobject.TaskStatusFailed) {
		return NewDomainError("cannot fail task in current status", "INVALID_STATUS_TRANSITION")
	}

	now := time.Now()
	t.status = valueobject.TaskStatusFailed
	t.completedAt = &now
	t.errorMsg = &errorMessage
	return nil
}

// RecordFailure increments the retry counter and stores the error without
// deciding the task's fate. Callers follow up with either Requeue or Fail.
func (t *ProcessingTask) RecordFailure(errorMessage string) {
	t.retryCount++
	t.errorMsg = &errorMessage
}

// CanRetry reports whether the retry budget permits another attempt.
// With the inclusive comparison a task that always fails runs exactly
// maxRetries+1 attempts in total.
func (t *ProcessingTask) CanRetry() bool {
	return t.maxRetries > 0 && t.retryCount <= t.maxRetries
}

// Requeue resets a failed attempt back to queued for a retry. The task
// identity is preserved; only the attempt timestamps are cleared.
func (t *ProcessingTask) Requeue() error {
	if !t.status.CanTransitionTo(valueobject.TaskStatusQueued) {
		return NewDomainError("cannot requeue task in current status", "INVALID_STATUS_TRANSITION")
	}

	t.status = valueobject.TaskStatusQueued
	t.startedAt = nil
	return nil
}

// Equal compares two ProcessingTask entities by identity.
func (t *ProcessingTask) Equal(other *ProcessingTask) bool {
	if other == nil {
		return false
	}
	return t.id == other.id
}
