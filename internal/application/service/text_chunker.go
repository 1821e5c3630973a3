package service

import "strings"

// TextChunker splits note text into overlapping word windows for
// embedding. Sizes are in words; overlap must be smaller than the chunk
// size or consecutive windows would never advance.
type TextChunker struct {
	chunkSize int
	overlap   int
}

// NewTextChunker creates a chunker. Non-positive sizes fall back to a
// single chunk covering the whole text.
func NewTextChunker(chunkSize, overlap int) *TextChunker {
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &TextChunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits text into overlapping windows. Empty or whitespace-only
// text yields no chunks.
func (c *TextChunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if c.chunkSize <= 0 || len(words) <= c.chunkSize {
		return []string{strings.Join(words, " ")}
	}

	step := c.chunkSize - c.overlap
	chunks := make([]string, 0, (len(words)+step-1)/step)
	for start := 0; start < len(words); start += step {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
