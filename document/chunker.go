package document

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultBoundaryWindow is how far back from a window's end the chunker
// searches for a sentence boundary before falling back to a hard cut.
const DefaultBoundaryWindow = 100

// Chunker splits extracted text into ordered, overlapping, sentence-aligned
// chunks. Identical input always yields identical offsets and content.
type Chunker struct {
	size           int
	overlap        int
	boundaryWindow int
}

func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be between 0 and chunk size %d, got %d", size, overlap)
	}

	return &Chunker{
		size:           size,
		overlap:        overlap,
		boundaryWindow: DefaultBoundaryWindow,
	}, nil
}

func (c *Chunker) Chunk(text string, documentID string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if len(text) <= c.size {
		content := strings.TrimSpace(text)
		return []Chunk{{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			Content:    content,
			Index:      0,
			StartChar:  0,
			EndChar:    len(text),
			Metadata: map[string]any{
				"total_chunks": 1,
				"chunk_length": len(content),
			},
		}}
	}

	var chunks []Chunk
	start := 0
	index := 0

	for start < len(text) {
		end := min(start+c.size, len(text))
		if end < len(text) {
			end = c.alignToBoundary(text, start, end)
		}

		content := strings.TrimSpace(text[start:end])
		if content != "" {
			chunks = append(chunks, Chunk{
				ID:         uuid.NewString(),
				DocumentID: documentID,
				Content:    content,
				Index:      index,
				StartChar:  start,
				EndChar:    end,
				Metadata: map[string]any{
					"chunk_length": len(content),
				},
			})
			index++
		}

		// max guarantees forward progress even when the boundary search
		// pulls end back inside the overlap.
		start = max(start+1, end-c.overlap)
	}

	for i := range chunks {
		chunks[i].Metadata["total_chunks"] = len(chunks)
	}

	return chunks
}

// alignToBoundary moves end back to just past the last sentence-ending
// character within the boundary window, or leaves it untouched if none is
// found.
func (c *Chunker) alignToBoundary(text string, start, end int) int {
	floor := max(start, end-c.boundaryWindow)
	for i := end - 1; i > floor; i-- {
		switch text[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}

	return end
}
