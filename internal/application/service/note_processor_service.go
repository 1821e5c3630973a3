package service

import (
	"context"
	"fmt"
	"time"

	"medinotes/internal/application/common/slogger"
	"medinotes/internal/application/dto"
	"medinotes/internal/application/worker"
	"medinotes/internal/domain/entity"
	domainerrors "medinotes/internal/domain/errors/domain"
	"medinotes/internal/domain/valueobject"
	"medinotes/internal/port/outbound"
)

// NoteProcessorService generates the structured note variants for a raw
// clinical note through the bounded job pool. One job produces every
// variant the prompt catalog knows.
type NoteProcessorService struct {
	pool       *worker.Pool
	notes      outbound.NoteRepository
	generator  outbound.TextGenerator
	catalog    *PromptCatalog
	validator  *NoteValidator
	embeddings embeddingsQueue
}

// embeddingsQueue is the slice of the embeddings service used to chain
// embedding generation after a note's variants are stored.
type embeddingsQueue interface {
	SubmitTask(ctx context.Context, noteID string) (*dto.SubmitResponse, error)
}

// NewNoteProcessorService creates the note processing service.
func NewNoteProcessorService(
	pool *worker.Pool,
	notes outbound.NoteRepository,
	generator outbound.TextGenerator,
	catalog *PromptCatalog,
) *NoteProcessorService {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if notes == nil {
		panic("notes cannot be nil")
	}
	if generator == nil {
		panic("generator cannot be nil")
	}
	if catalog == nil {
		catalog = DefaultPromptCatalog()
	}
	return &NoteProcessorService{
		pool:      pool,
		notes:     notes,
		generator: generator,
		catalog:   catalog,
		validator: NewNoteValidator(),
	}
}

// ChainEmbeddings makes every completed job queue an embeddings task for
// its note. A full embeddings queue does not fail the job.
func (s *NoteProcessorService) ChainEmbeddings(queue embeddingsQueue) {
	s.embeddings = queue
}

// SubmitJob queues variant generation for a note. The note's existence is
// verified before admission so a bad note ID fails fast instead of
// consuming a worker.
func (s *NoteProcessorService) SubmitJob(ctx context.Context, noteID string) (*dto.SubmitResponse, error) {
	if noteID == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if _, err := s.notes.FindByID(ctx, noteID); err != nil {
		return nil, err
	}

	snapshot, err := s.pool.Submit(ctx, noteID, s.processNote)
	if err != nil {
		return nil, err
	}

	return &dto.SubmitResponse{
		ID:     snapshot.ID,
		NoteID: snapshot.NoteID,
		Status: snapshot.Status.String(),
	}, nil
}

// GetJobStatus returns a snapshot of one job.
func (s *NoteProcessorService) GetJobStatus(_ context.Context, jobID string) (*dto.TaskResponse, error) {
	snapshot, ok := s.pool.Task(jobID)
	if !ok {
		return nil, domainerrors.ErrTaskNotFound
	}
	response := toTaskResponse(snapshot)
	return &response, nil
}

// ListJobs returns snapshots of all tracked jobs.
func (s *NoteProcessorService) ListJobs(_ context.Context) (*dto.TaskListResponse, error) {
	snapshots := s.pool.Tasks()
	tasks := make([]dto.TaskResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		tasks = append(tasks, toTaskResponse(snapshot))
	}
	return &dto.TaskListResponse{Tasks: tasks, Total: len(tasks)}, nil
}

// CancelJob cancels a job that has not started.
func (s *NoteProcessorService) CancelJob(ctx context.Context, jobID string) (bool, error) {
	if _, ok := s.pool.Task(jobID); !ok {
		return false, domainerrors.ErrTaskNotFound
	}
	return s.pool.Cancel(ctx, jobID), nil
}

// QueueStats reports the job pool's occupancy.
func (s *NoteProcessorService) QueueStats(_ context.Context) (*dto.QueueStatsResponse, error) {
	return toQueueStatsResponse(s.pool.Stats()), nil
}

// GetGeneratedNotes returns the stored variants for a note.
func (s *NoteProcessorService) GetGeneratedNotes(ctx context.Context, noteID string) (*dto.GeneratedNotesResponse, error) {
	if noteID == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	generated, err := s.notes.FindGenerated(ctx, noteID)
	if err != nil {
		return nil, err
	}

	response := &dto.GeneratedNotesResponse{
		NoteID: noteID,
		Notes:  make([]dto.GeneratedNoteResponse, 0, len(generated)),
	}
	for _, note := range generated {
		response.Notes = append(response.Notes, dto.GeneratedNoteResponse{
			NoteType:    note.NoteType.String(),
			Content:     note.Content,
			GeneratedAt: note.GeneratedAt,
		})
	}
	return response, nil
}

// ValidateNote checks one generated variant against its source text
// without touching storage. Useful for spot checks on output already in
// the hands of a reviewer.
func (s *NoteProcessorService) ValidateNote(_ context.Context, request dto.ValidateNoteRequest) (*dto.ValidationReportResponse, error) {
	if request.SourceNote == "" || request.GeneratedOutput == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	noteType, err := valueobject.NewNoteType(request.NoteType)
	if err != nil {
		return nil, domainerrors.ErrInvalidInput
	}

	report := s.validator.Validate(noteType, request.SourceNote, request.GeneratedOutput)
	return &dto.ValidationReportResponse{
		NoteType: report.NoteType,
		Decision: report.Decision,
		Passed:   report.Passed,
		Score:    report.Score,
		Issues:   report.Issues,
	}, nil
}

// processNote is the pool task: load the note, generate every variant,
// and persist the results. A single failed variant fails the whole job so
// the stored set is never partial.
func (s *NoteProcessorService) processNote(ctx context.Context, task *entity.ProcessingTask) (map[string]any, error) {
	note, err := s.notes.FindByID(ctx, task.NoteID())
	if err != nil {
		return nil, fmt.Errorf("load note %s: %w", task.NoteID(), err)
	}

	noteTypes := s.catalog.NoteTypes()
	generated := make([]outbound.GeneratedNote, 0, len(noteTypes))
	totalOutputTokens := 0
	validationWarnings := 0

	for _, noteType := range noteTypes {
		system, user, err := s.catalog.Render(noteType, note.Text)
		if err != nil {
			return nil, err
		}

		result, err := s.generator.Generate(ctx, outbound.GenerationRequest{
			SystemPrompt: system,
			UserPrompt:   user,
		})
		if err != nil {
			return nil, fmt.Errorf("generate %s for note %s: %w", noteType, note.ID, err)
		}

		generated = append(generated, outbound.GeneratedNote{
			NoteID:      note.ID,
			NoteType:    noteType,
			Content:     result.Text,
			Model:       result.Model,
			GeneratedAt: time.Now().UTC(),
		})
		totalOutputTokens += result.OutputTokens

		// Validation never fails the job; weak variants are stored and
		// flagged for review.
		if report := s.validator.Validate(noteType, note.Text, result.Text); !report.Passed {
			validationWarnings += len(report.Issues)
			slogger.Warn(ctx, "Generated note variant failed validation checks", slogger.Fields{
				"note_id":   note.ID,
				"note_type": noteType.String(),
				"job_id":    task.ID(),
				"decision":  report.Decision,
				"score":     report.Score,
				"issues":    report.Issues,
			})
		}

		slogger.Info(ctx, "Generated note variant", slogger.Fields{
			"note_id":   note.ID,
			"note_type": noteType.String(),
			"job_id":    task.ID(),
		})
	}

	if err := s.notes.SaveGenerated(ctx, generated); err != nil {
		return nil, fmt.Errorf("save generated notes for %s: %w", note.ID, err)
	}

	if s.embeddings != nil {
		if _, err := s.embeddings.SubmitTask(ctx, note.ID); err != nil {
			slogger.Warn(ctx, "Could not queue embeddings for processed note", slogger.Fields{
				"note_id": note.ID,
				"job_id":  task.ID(),
				"error":   err.Error(),
			})
		}
	}

	return map[string]any{
		"note_id":             note.ID,
		"variants":            len(generated),
		"output_tokens":       totalOutputTokens,
		"generated_types":     noteTypeStrings(noteTypes),
		"validation_warnings": validationWarnings,
	}, nil
}

func noteTypeStrings(types []valueobject.NoteType) []string {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, t.String())
	}
	return names
}
