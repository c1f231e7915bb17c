package mdchunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

// TestS1Scenario reproduces spec.md's literal S1 example exactly.
func TestS1Scenario(t *testing.T) {
	doc := "# A\n## B\nhello world\n## C\nbye"
	chunks := IngestString("doc.md", doc, time.Time{})

	require.Len(t, chunks, 2)

	assert.Equal(t, "# A > ## B", chunks[0].Section)
	assert.Equal(t, "hello world", chunks[0].Content)
	assert.Equal(t, 3, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)

	assert.Equal(t, "# A > ## C", chunks[1].Section)
	assert.Equal(t, "hello world\n---\nbye", chunks[1].Content)
	assert.Equal(t, 5, chunks[1].StartLine)
	assert.Equal(t, 5, chunks[1].EndLine)
}

// TestHashCoversPrimaryContentOnly verifies DESIGN.md's resolution of
// spec §9 open question (a): the hash must not change depending on what
// overlap text happens to precede a chunk.
func TestHashCoversPrimaryContentOnly(t *testing.T) {
	doc1 := "# A\n## B\nhello world\n## C\nbye"
	doc2 := "# X\n## Y\nsomething else entirely\n## C\nbye"

	c1 := IngestString("doc1.md", doc1, time.Time{})
	c2 := IngestString("doc2.md", doc2, time.Time{})

	require.Len(t, c1, 2)
	require.Len(t, c2, 2)
	assert.Equal(t, c1[1].Hash, c2[1].Hash, "hash of the 'bye' chunk must be stable regardless of preceding overlap")
}

func TestIngestIdempotent(t *testing.T) {
	doc := "# A\n## B\nhello world\n## C\nbye"
	first := IngestString("doc.md", doc, time.Time{})
	second := IngestString("doc.md", doc, time.Time{})
	assert.Equal(t, first, second)
}

func TestDedupAcrossCorpusDropsLaterDuplicate(t *testing.T) {
	seen := map[string]bool{}
	a := chunk.Chunk{Content: "x", StartLine: 1, EndLine: 1}.WithHash("x")
	b := chunk.Chunk{Content: "x", StartLine: 1, EndLine: 1}.WithHash("x")
	c := chunk.Chunk{Content: "y", StartLine: 1, EndLine: 1}.WithHash("y")

	out := DedupAcrossCorpus([]chunk.Chunk{a, b, c}, seen)
	require.Len(t, out, 2)
	assert.Equal(t, "x", out[0].Content)
	assert.Equal(t, "y", out[1].Content)
}

func TestEmptyChunksDropped(t *testing.T) {
	doc := "# A\n\n\n## B\nreal content"
	chunks := IngestString("doc.md", doc, time.Time{})
	require.Len(t, chunks, 1)
	assert.Equal(t, "real content", chunks[0].Content)
}

func TestIngestMissingFileIsNonFatal(t *testing.T) {
	_, err := Ingest("missing.md", "/no/such/path.md", time.Time{})
	require.Error(t, err)
}
