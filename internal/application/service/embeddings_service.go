package service

import (
	"context"
	"fmt"

	"medinotes/internal/application/dto"
	"medinotes/internal/application/worker"
	"medinotes/internal/domain/entity"
	domainerrors "medinotes/internal/domain/errors/domain"
	"medinotes/internal/port/outbound"
)

// EmbeddingsService generates and stores embedding vectors for notes
// through the background embeddings pool. Unlike note-processing jobs,
// embeddings tasks are retried on transient model errors.
type EmbeddingsService struct {
	pool      *worker.Pool
	notes     outbound.NoteRepository
	generator outbound.EmbeddingGenerator
	store     outbound.EmbeddingStore
	chunker   *TextChunker
}

// NewEmbeddingsService creates the background embeddings service.
func NewEmbeddingsService(
	pool *worker.Pool,
	notes outbound.NoteRepository,
	generator outbound.EmbeddingGenerator,
	store outbound.EmbeddingStore,
	chunker *TextChunker,
) *EmbeddingsService {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if notes == nil {
		panic("notes cannot be nil")
	}
	if generator == nil {
		panic("generator cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}
	if chunker == nil {
		panic("chunker cannot be nil")
	}
	return &EmbeddingsService{
		pool:      pool,
		notes:     notes,
		generator: generator,
		store:     store,
		chunker:   chunker,
	}
}

// SubmitTask queues embeddings generation for a note.
func (s *EmbeddingsService) SubmitTask(ctx context.Context, noteID string) (*dto.SubmitResponse, error) {
	if noteID == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if _, err := s.notes.FindByID(ctx, noteID); err != nil {
		return nil, err
	}

	snapshot, err := s.pool.Submit(ctx, noteID, s.generateEmbeddings)
	if err != nil {
		return nil, err
	}

	return &dto.SubmitResponse{
		ID:     snapshot.ID,
		NoteID: snapshot.NoteID,
		Status: snapshot.Status.String(),
	}, nil
}

// GetTaskStatus returns a snapshot of one embeddings task.
func (s *EmbeddingsService) GetTaskStatus(_ context.Context, taskID string) (*dto.TaskResponse, error) {
	snapshot, ok := s.pool.Task(taskID)
	if !ok {
		return nil, domainerrors.ErrTaskNotFound
	}
	response := toTaskResponse(snapshot)
	return &response, nil
}

// QueueStats reports the embeddings pool's occupancy.
func (s *EmbeddingsService) QueueStats(_ context.Context) (*dto.QueueStatsResponse, error) {
	return toQueueStatsResponse(s.pool.Stats()), nil
}

// generateEmbeddings is the pool task: chunk the note, embed every chunk,
// and replace the note's stored vectors.
func (s *EmbeddingsService) generateEmbeddings(ctx context.Context, task *entity.ProcessingTask) (map[string]any, error) {
	note, err := s.notes.FindByID(ctx, task.NoteID())
	if err != nil {
		return nil, fmt.Errorf("load note %s: %w", task.NoteID(), err)
	}

	chunks := s.chunker.Chunk(note.Text)
	if len(chunks) == 0 {
		return nil, domainerrors.ErrEmptyNoteText
	}

	vectors, err := s.generator.GenerateBatchEmbeddings(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed note %s: %w", note.ID, err)
	}

	if err := s.store.SaveEmbeddings(ctx, note.ID, chunks, vectors); err != nil {
		return nil, fmt.Errorf("store embeddings for note %s: %w", note.ID, err)
	}

	dimensions := 0
	if len(vectors) > 0 {
		dimensions = len(vectors[0])
	}
	return map[string]any{
		"note_id":    note.ID,
		"chunks":     len(chunks),
		"dimensions": dimensions,
	}, nil
}
