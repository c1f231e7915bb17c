package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

func TestTokenizeLowersAndDropsShortTokens(t *testing.T) {
	tokens := Tokenize("Hello, World! a /path/to-file.go")
	assert.Equal(t, []string{"hello", "world", "/path/to-file.go"}, tokens)
}

func TestBM25SearchScoresRelevantChunkHighest(t *testing.T) {
	chunks := []chunk.Chunk{
		{Source: "a", Content: "the quick brown fox jumps over the lazy dog"},
		{Source: "b", Content: "completely unrelated content about cooking recipes"},
	}
	idx := NewBM25Index(chunks)
	results := idx.Search("fox jumps")
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Chunk.Source)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestBM25SearchMultiTermBonus(t *testing.T) {
	chunks := []chunk.Chunk{
		{Source: "a", Content: "alpha beta"},
		{Source: "b", Content: "alpha gamma delta"},
	}
	idx := NewBM25Index(chunks)
	results := idx.Search("alpha beta")

	var aScore, bScore float64
	for _, r := range results {
		if r.Chunk.Source == "a" {
			aScore = r.Score
		}
		if r.Chunk.Source == "b" {
			bScore = r.Score
		}
	}
	assert.Greater(t, aScore, bScore, "chunk matching both query terms should outscore a single-term match")
}

func TestBM25SearchEmptyQueryReturnsNil(t *testing.T) {
	idx := NewBM25Index([]chunk.Chunk{{Source: "a", Content: "x"}})
	assert.Nil(t, idx.Search(""))
}

func TestBM25SearchEmptyCorpusReturnsNil(t *testing.T) {
	idx := NewBM25Index(nil)
	assert.Nil(t, idx.Search("anything"))
}

func TestBM25SearchSubstringMatch(t *testing.T) {
	chunks := []chunk.Chunk{
		{Source: "a", Content: "use kebab-case-identifiers everywhere"},
	}
	idx := NewBM25Index(chunks)
	results := idx.Search("kebab")
	require.Len(t, results, 1)
}
