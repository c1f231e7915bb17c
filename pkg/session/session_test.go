package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeNameRejectsBadCharacters(t *testing.T) {
	_, err := SanitizeName("../escape")
	require.Error(t, err)

	name, err := SanitizeName("feature-123_final.v2")
	require.NoError(t, err)
	assert.Equal(t, "feature-123_final.v2", name)
}

func TestSanitizeNameRejectsOverlongName(t *testing.T) {
	long := ""
	for i := 0; i < 101; i++ {
		long += "a"
	}
	_, err := SanitizeName(long)
	require.Error(t, err)
}

func TestSaveUpsertsPreservingFirstInsertOrder(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, s.Save("demo", "status", "in-progress"))
	require.NoError(t, s.Save("demo", "owner", "alice"))
	require.NoError(t, s.Save("demo", "status", "done"))

	entries, err := s.Load("demo")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "status", entries[0].Key)
	assert.Equal(t, "done", entries[0].Value)
	assert.Equal(t, "owner", entries[1].Key)
}

func TestLoadMissingSessionReturnsNilNoError(t *testing.T) {
	s := NewStore(t.TempDir())
	entries, err := s.Load("nope")
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestListAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	s := NewStore(dir)
	require.NoError(t, s.Save("a", "k", "v"))
	require.NoError(t, s.Save("b", "k", "v"))

	names, err := s.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names)

	require.NoError(t, s.Delete("a"))
	names, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)

	// Deleting an already-gone session is not an error.
	require.NoError(t, s.Delete("a"))
}
