package outbound

import "context"

// EmbeddingGenerator defines the interface for generating embedding
// vectors from note text.
type EmbeddingGenerator interface {
	// GenerateEmbedding generates an embedding vector for a single text.
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)

	// GenerateBatchEmbeddings generates embeddings for multiple texts,
	// preserving input order in the result.
	GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error)
}

// EmbeddingStore persists embedding vectors for note chunks.
type EmbeddingStore interface {
	// SaveEmbeddings stores the vectors for a note's chunks, replacing any
	// previously stored vectors for the same note.
	SaveEmbeddings(ctx context.Context, noteID string, chunks []string, vectors [][]float64) error

	// DeleteEmbeddings removes all stored vectors for a note.
	DeleteEmbeddings(ctx context.Context, noteID string) error
}
