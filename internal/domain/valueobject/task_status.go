package valueobject

import "fmt"

// TaskStatus represents the current status of a processing task.
type TaskStatus string

// Task status constants.
const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
	// TaskStatusTimeout is a declared terminal state that no code path
	// currently produces. Wall-clock enforcement of job timeouts would
	// transition into it.
	TaskStatusTimeout TaskStatus = "timeout"
)

// validTaskStatuses contains all valid task statuses.
var validTaskStatuses = map[TaskStatus]bool{
	TaskStatusQueued:     true,
	TaskStatusProcessing: true,
	TaskStatusCompleted:  true,
	TaskStatusFailed:     true,
	TaskStatusTimeout:    true,
}

// NewTaskStatus creates a new TaskStatus with validation.
func NewTaskStatus(status string) (TaskStatus, error) {
	s := TaskStatus(status)
	if !validTaskStatuses[s] {
		return "", fmt.Errorf("invalid task status: %s", status)
	}
	return s, nil
}

// String returns the string representation of the status.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusTimeout
}

// CanTransitionTo returns true if the status can transition to the target status.
// The processing -> queued edge exists only for retryable tasks that are
// requeued after a failure; pools without a retry policy never take it.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	transitions := map[TaskStatus][]TaskStatus{
		TaskStatusQueued: {
			TaskStatusProcessing,
			TaskStatusFailed,
		},
		TaskStatusProcessing: {
			TaskStatusCompleted,
			TaskStatusFailed,
			TaskStatusTimeout,
			TaskStatusQueued,
		},
		// Terminal states cannot transition
		TaskStatusCompleted: {},
		TaskStatusFailed:    {},
		TaskStatusTimeout:   {},
	}

	validTransitions, exists := transitions[s]
	if !exists {
		return false
	}

	for _, validTarget := range validTransitions {
		if target == validTarget {
			return true
		}
	}
	return false
}

// AllTaskStatuses returns all valid task statuses.
func AllTaskStatuses() []TaskStatus {
	statuses := make([]TaskStatus, 0, len(validTaskStatuses))
	for status := range validTaskStatuses {
		statuses = append(statuses, status)
	}
	return statuses
}
