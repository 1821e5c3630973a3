// Package inbound defines the inbound ports (interfaces) for the application layer.
// These ports represent the entry points into the application's core business logic.
package inbound

import (
	"context"

	"medinotes/internal/application/dto"
)

// NoteProcessingService defines the inbound port for submitting and
// observing note-processing jobs.
type NoteProcessingService interface {
	// SubmitJob queues a note for processing. Returns domain.ErrQueueFull
	// when admission control rejects the job.
	SubmitJob(ctx context.Context, noteID string) (*dto.SubmitResponse, error)

	// GetJobStatus returns a snapshot of one job, or domain.ErrTaskNotFound.
	GetJobStatus(ctx context.Context, jobID string) (*dto.TaskResponse, error)

	// ListJobs returns snapshots of all tracked jobs.
	ListJobs(ctx context.Context) (*dto.TaskListResponse, error)

	// CancelJob cancels a job that has not started. Returns true when the
	// cancellation took effect.
	CancelJob(ctx context.Context, jobID string) (bool, error)

	// QueueStats reports the job pool's occupancy.
	QueueStats(ctx context.Context) (*dto.QueueStatsResponse, error)

	// GetGeneratedNotes returns the stored note variants for a note.
	GetGeneratedNotes(ctx context.Context, noteID string) (*dto.GeneratedNotesResponse, error)

	// ValidateNote checks one generated variant against its source text.
	// Returns domain.ErrInvalidInput on an empty field or unknown type.
	ValidateNote(ctx context.Context, request dto.ValidateNoteRequest) (*dto.ValidationReportResponse, error)
}

// EmbeddingsService defines the inbound port for background embeddings
// generation.
type EmbeddingsService interface {
	// SubmitTask queues embeddings generation for a note. Returns
	// domain.ErrQueueFull when admission control rejects the task.
	SubmitTask(ctx context.Context, noteID string) (*dto.SubmitResponse, error)

	// GetTaskStatus returns a snapshot of one task, or domain.ErrTaskNotFound.
	GetTaskStatus(ctx context.Context, taskID string) (*dto.TaskResponse, error)

	// QueueStats reports the embeddings pool's occupancy.
	QueueStats(ctx context.Context) (*dto.QueueStatsResponse, error)
}
