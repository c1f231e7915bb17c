package rank

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

type fakeEmbedder struct {
	calls   int
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := f.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func mkChunk(source, section string, line int, content string) chunk.Chunk {
	c := chunk.Chunk{Source: source, Section: section, StartLine: line, Content: content}
	c.Hash = chunk.ContentHash(content)
	return c
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	a := mkChunk("b", "x", 1, "one")
	b := mkChunk("a", "x", 1, "two")

	fp1 := Fingerprint([]chunk.Chunk{a, b})
	fp2 := Fingerprint([]chunk.Chunk{b, a})
	assert.Equal(t, fp1, fp2, "fingerprint must not depend on input slice order")
}

func TestFingerprintChangesWithContent(t *testing.T) {
	a := mkChunk("a", "x", 1, "one")
	aChanged := mkChunk("a", "x", 1, "one-changed")

	fp1 := Fingerprint([]chunk.Chunk{a})
	fp2 := Fingerprint([]chunk.Chunk{aChanged})
	assert.NotEqual(t, fp1, fp2)
}

func TestCacheLoadMissesThenHits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embed-cache.json")
	chunks := []chunk.Chunk{mkChunk("a", "sec", 1, "hello world")}

	embedder := &fakeEmbedder{}
	cache := NewCache(path, embedder)

	vecs := cache.Load(chunks)
	require.NotNil(t, vecs)
	assert.Equal(t, 1, embedder.calls)

	// second load with same corpus must hit the persisted cache, not re-embed
	cache2 := NewCache(path, embedder)
	vecs2 := cache2.Load(chunks)
	require.NotNil(t, vecs2)
	assert.Equal(t, 1, embedder.calls, "cache hit must not call the embedder again")
	assert.Equal(t, vecs, vecs2)
}

func TestCacheLoadDisablesPermanentlyOnEmbedderError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embed-cache.json")
	chunks := []chunk.Chunk{mkChunk("a", "sec", 1, "hello world")}

	embedder := &fakeEmbedder{err: fmt.Errorf("provider unavailable")}
	cache := NewCache(path, embedder)

	vecs := cache.Load(chunks)
	assert.Nil(t, vecs)
	assert.True(t, cache.Disabled())

	// further loads must stay disabled without calling the embedder again
	calls := embedder.calls
	vecs2 := cache.Load(chunks)
	assert.Nil(t, vecs2)
	assert.Equal(t, calls, embedder.calls)
}

func TestNewCacheWithNilEmbedderStartsDisabled(t *testing.T) {
	cache := NewCache("/tmp/unused-cache.json", nil)
	assert.True(t, cache.Disabled())
	assert.Nil(t, cache.Load([]chunk.Chunk{mkChunk("a", "s", 1, "x")}))
}

func TestCacheLoadReembedsWhenFingerprintChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embed-cache.json")
	embedder := &fakeEmbedder{}
	cache := NewCache(path, embedder)

	chunks := []chunk.Chunk{mkChunk("a", "sec", 1, "hello world")}
	cache.Load(chunks)
	assert.Equal(t, 1, embedder.calls)

	changed := []chunk.Chunk{mkChunk("a", "sec", 1, "a different body entirely")}
	cache.Load(changed)
	assert.Equal(t, 2, embedder.calls, "fingerprint mismatch must trigger a re-embed")
}

func TestDenseSearchScoresByDotProduct(t *testing.T) {
	a := mkChunk("a", "s", 1, "x")
	b := mkChunk("b", "s", 1, "y")
	vectors := map[string][]float32{
		chunk.Key(a): {1, 0},
		chunk.Key(b): {0, 1},
	}
	query := []float32{1, 0}

	results := DenseSearch([]chunk.Chunk{a, b}, vectors, query)
	require.Len(t, results, 2)

	var aScore, bScore float64
	for _, r := range results {
		if r.Chunk.Source == "a" {
			aScore = r.Score
		}
		if r.Chunk.Source == "b" {
			bScore = r.Score
		}
	}
	assert.InDelta(t, 1.0, aScore, 1e-9)
	assert.InDelta(t, 0.0, bScore, 1e-9)
}

func TestDenseSearchSkipsChunksWithoutVectors(t *testing.T) {
	a := mkChunk("a", "s", 1, "x")
	results := DenseSearch([]chunk.Chunk{a}, map[string][]float32{}, []float32{1, 0})
	assert.Empty(t, results)
}
