package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsift/docsift/internal/models"
	"github.com/docsift/docsift/pkg/chunker"
)

func TestSplit_EmptyInput(t *testing.T) {
	s := chunker.NewWithConfig(chunker.Config{ChunkSize: 100, ChunkOverlap: 10})

	assert.Empty(t, s.Split("", models.ChunkMeta{}))
	assert.Empty(t, s.Split("   \n\n\t  ", models.ChunkMeta{}))
}

func TestSplit_ChunkBound(t *testing.T) {
	s := chunker.NewWithConfig(chunker.Config{ChunkSize: 50, ChunkOverlap: 10})

	texts := []string{
		strings.Repeat("word and another ", 40),
		strings.Repeat("x", 500),
		"Short one.\n\nSecond paragraph that is a bit longer than the first.\n\nThird.",
		strings.Repeat("A sentence here. ", 30),
	}

	for _, text := range texts {
		for _, chunk := range s.Split(text, models.ChunkMeta{}) {
			assert.LessOrEqual(t, len([]rune(chunk.Text)), 50, "chunk %q exceeds chunk size", chunk.Text)
		}
	}
}

func TestSplit_OverlapOnContiguousText(t *testing.T) {
	// No separators in the text, so the character-level fallback applies
	// and adjacent chunks share exactly ChunkOverlap characters.
	s := chunker.NewWithConfig(chunker.Config{ChunkSize: 20, ChunkOverlap: 5})

	text := "abcdefghijklmnopqrstuvwxyz0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	chunks := s.Split(text, models.ChunkMeta{})
	require.Greater(t, len(chunks), 1)

	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i].Text[len(chunks[i].Text)-5:]
		head := chunks[i+1].Text[:5]
		assert.Equal(t, tail, head, "chunks %d and %d do not overlap", i, i+1)
	}
}

func TestSplit_ChunkIDsMonotonic(t *testing.T) {
	s := chunker.NewWithConfig(chunker.Config{ChunkSize: 30, ChunkOverlap: 5})

	chunks := s.Split(strings.Repeat("some words go here ", 20), models.ChunkMeta{})
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkID)
	}

	// A fresh call restarts at 0.
	again := s.Split("short text", models.ChunkMeta{})
	require.NotEmpty(t, again)
	assert.Equal(t, 0, again[0].ChunkID)
}

func TestSplit_MetadataCopied(t *testing.T) {
	s := chunker.NewWithConfig(chunker.Config{ChunkSize: 30, ChunkOverlap: 5})

	meta := models.ChunkMeta{
		Source: "report.pdf",
		Page:   7,
		Method: "pdf",
		Extra:  map[string]string{"lang": "en"},
	}
	chunks := s.Split(strings.Repeat("several words here ", 10), meta)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.Equal(t, "report.pdf", chunk.Source)
		assert.Equal(t, 7, chunk.Page)
		assert.Equal(t, "pdf", chunk.Method)
		assert.Equal(t, "en", chunk.Metadata["lang"])
	}

	// The copies are independent of the caller's map.
	chunks[0].Metadata["lang"] = "de"
	assert.Equal(t, "en", meta.Extra["lang"])
	assert.Equal(t, "en", chunks[1].Metadata["lang"])
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	s := chunker.NewWithConfig(chunker.Config{ChunkSize: 40, ChunkOverlap: 5})

	text := "First paragraph stays whole.\n\nSecond paragraph stays whole too."
	chunks := s.Split(text, models.ChunkMeta{})
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Text, "First paragraph")
	assert.Contains(t, chunks[1].Text, "Second paragraph")
}

func TestSplit_Deterministic(t *testing.T) {
	s := chunker.NewWithConfig(chunker.Config{ChunkSize: 35, ChunkOverlap: 8})
	text := strings.Repeat("Sentences repeat here. ", 25)

	first := s.Split(text, models.ChunkMeta{Source: "a"})
	second := s.Split(text, models.ChunkMeta{Source: "a"})
	assert.Equal(t, first, second)
}
