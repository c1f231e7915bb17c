package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentHashDeterministic(t *testing.T) {
	h1 := ContentHash("hello world")
	h2 := ContentHash("hello world")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 16)
}

func TestContentHashDiffers(t *testing.T) {
	assert.NotEqual(t, ContentHash("a"), ContentHash("b"))
}

func TestValidateRejectsEmptyContent(t *testing.T) {
	c := Chunk{Content: "", StartLine: 1, EndLine: 1}
	require.Error(t, c.Validate())
}

func TestValidateRejectsBadRange(t *testing.T) {
	c := Chunk{Content: "x", StartLine: 5, EndLine: 2}
	require.Error(t, c.Validate())
}

func TestValidateAccepts(t *testing.T) {
	c := Chunk{Content: "x", StartLine: 1, EndLine: 1}
	require.NoError(t, c.Validate())
}

func TestWithHashUsesGivenContent(t *testing.T) {
	c := Chunk{Content: "overlap\n---\nbody"}
	c = c.WithHash("body")
	assert.Equal(t, ContentHash("body"), c.Hash)
	assert.NotEqual(t, ContentHash(c.Content), c.Hash)
}

func TestKeyDistinguishesBySection(t *testing.T) {
	a := Chunk{Source: "f.md", Section: "# A", StartLine: 1}
	b := Chunk{Source: "f.md", Section: "# B", StartLine: 1}
	assert.NotEqual(t, Key(a), Key(b))
}
