package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLEmbeddingStore implements outbound.EmbeddingStore over a
// pgvector-backed note_embeddings table.
type PostgreSQLEmbeddingStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLEmbeddingStore creates a new embedding store.
func NewPostgreSQLEmbeddingStore(pool *pgxpool.Pool) *PostgreSQLEmbeddingStore {
	return &PostgreSQLEmbeddingStore{pool: pool}
}

// vectorToString converts a float64 slice to pgvector text format.
func vectorToString(vector []float64) string {
	if len(vector) == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, val := range vector {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
	}
	sb.WriteByte(']')
	return sb.String()
}

// SaveEmbeddings replaces all stored vectors for a note with the given
// chunk/vector pairs. The two slices must have equal length.
func (s *PostgreSQLEmbeddingStore) SaveEmbeddings(ctx context.Context, noteID string, chunks []string, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return WrapError(err, "begin embeddings transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM note_embeddings WHERE note_id = $1`, noteID); err != nil {
		return WrapError(err, "delete stale embeddings")
	}

	insert := `
		INSERT INTO note_embeddings (note_id, chunk_index, chunk_text, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(insert, noteID, i, chunk, vectorToString(vectors[i]), now)
	}

	results := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return WrapError(err, "insert embeddings")
		}
	}
	if err := results.Close(); err != nil {
		return WrapError(err, "close embeddings batch")
	}

	if err := tx.Commit(ctx); err != nil {
		return WrapError(err, "commit embeddings")
	}
	return nil
}

// DeleteEmbeddings removes all stored vectors for a note.
func (s *PostgreSQLEmbeddingStore) DeleteEmbeddings(ctx context.Context, noteID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM note_embeddings WHERE note_id = $1`, noteID); err != nil {
		return WrapError(err, "delete embeddings")
	}
	return nil
}
