package document

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewChunker(t *testing.T) {
	var cases = []struct {
		size    int
		overlap int
		wantErr bool
	}{
		{size: 1000, overlap: 200, wantErr: false},
		{size: 10, overlap: 9, wantErr: false},
		{size: 0, overlap: 0, wantErr: true},
		{size: 100, overlap: 0, wantErr: true},
		{size: 100, overlap: 100, wantErr: true},
		{size: 100, overlap: 150, wantErr: true},
		{size: -5, overlap: 1, wantErr: true},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			_, err := NewChunker(c.size, c.overlap)
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_Chunk_SingleChunk(t *testing.T) {
	chunker, err := NewChunker(1000, 200)
	require.NoError(t, err)

	chunks := chunker.Chunk("A. B. C.", "doc1")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A. B. C.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 0, chunks[0].StartChar)
	assert.Equal(t, 8, chunks[0].EndChar)
	assert.Equal(t, "doc1", chunks[0].DocumentID)
	assert.Equal(t, 1, chunks[0].Metadata["total_chunks"])
}

func Test_Chunk_Empty(t *testing.T) {
	chunker, err := NewChunker(100, 10)
	require.NoError(t, err)

	assert.Empty(t, chunker.Chunk("", "doc1"))
	assert.Empty(t, chunker.Chunk("   \n\t  ", "doc1"))
}

func Test_Chunk_MonotonicIndices(t *testing.T) {
	chunker, err := NewChunker(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	chunks := chunker.Chunk(text, "doc1")
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Greater(t, c.EndChar, c.StartChar)
		assert.Equal(t, len(chunks), c.Metadata["total_chunks"])
	}
}

func Test_Chunk_SentenceBoundaryAlignment(t *testing.T) {
	chunker, err := NewChunker(40, 10)
	require.NoError(t, err)

	text := "First sentence here. Second sentence follows. Third one ends the text."
	chunks := chunker.Chunk(text, "doc1")
	require.NotEmpty(t, chunks)

	// every chunk except the last should end just past a boundary character
	for _, c := range chunks[:len(chunks)-1] {
		last := text[c.EndChar-1]
		assert.Contains(t, []byte{'.', '!', '?', '\n'}, last,
			"chunk ending at %d should be sentence aligned", c.EndChar)
	}
}

func Test_Chunk_Coverage(t *testing.T) {
	chunker, err := NewChunker(80, 20)
	require.NoError(t, err)

	text := strings.Repeat("Sentences cover the document. ", 30)
	chunks := chunker.Chunk(text, "doc1")
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].StartChar)
	for i := 1; i < len(chunks); i++ {
		// overlap means the next chunk starts before the previous one ends
		assert.LessOrEqual(t, chunks[i].StartChar, chunks[i-1].EndChar)
	}
	assert.GreaterOrEqual(t, chunks[len(chunks)-1].EndChar, len(text)-DefaultBoundaryWindow)
}

func Test_Chunk_Deterministic(t *testing.T) {
	chunker, err := NewChunker(60, 15)
	require.NoError(t, err)

	text := strings.Repeat("Determinism matters! Re-chunking must reproduce offsets. ", 10)
	first := chunker.Chunk(text, "doc1")
	second := chunker.Chunk(text, "doc1")
	require.Equal(t, len(first), len(second))

	for i := range first {
		assert.Equal(t, first[i].StartChar, second[i].StartChar)
		assert.Equal(t, first[i].EndChar, second[i].EndChar)
		assert.Equal(t, first[i].Content, second[i].Content)
	}
}

func Test_Chunk_ForwardProgress(t *testing.T) {
	// overlap of size-1 is the degenerate configuration where only the
	// max(start+1, end-overlap) rule keeps the window moving
	chunker, err := NewChunker(10, 9)
	require.NoError(t, err)

	text := strings.Repeat("aaaaaaaaaa", 20)
	chunks := chunker.Chunk(text, "doc1")
	require.NotEmpty(t, chunks)

	prev := -1
	for _, c := range chunks {
		assert.Greater(t, c.StartChar, prev)
		prev = c.StartChar
	}
}

func Test_Chunk_TrimsWhitespace(t *testing.T) {
	chunker, err := NewChunker(30, 5)
	require.NoError(t, err)

	text := "Leading sentence ends here.\n\n   Next sentence after blank lines ends too.\n"
	chunks := chunker.Chunk(text, "doc1")
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.NotEmpty(t, c.Content)
		assert.Equal(t, strings.TrimSpace(c.Content), c.Content)
	}
}
