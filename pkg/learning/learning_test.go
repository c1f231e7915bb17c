package learning

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestOpenSeedsStarterSetOnFirstUse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "learnings.json")

	s, err := Open(path, fixedClock(time.Unix(0, 0)))
	require.NoError(t, err)
	assert.NotEmpty(t, s.List("", nil))
	assert.FileExists(t, path)
}

func TestOpenDoesNotOverwriteExistingStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "learnings.json")

	s1, err := Open(path, fixedClock(time.Unix(0, 0)))
	require.NoError(t, err)
	s1.Save("testing", "custom rule", "ctx", "")

	s2, err := Open(path, fixedClock(time.Unix(0, 0)))
	require.NoError(t, err)
	found := false
	for _, l := range s2.List("", nil) {
		if l.Rule == "custom rule" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSaveDedupsByCategoryAndNormalizedRule(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "learnings.json"), fixedClock(time.Unix(100, 0)))
	require.NoError(t, err)

	before := len(s.List("", nil))
	s.Save("testing", "  Use Table Tests  ", "first context", "")
	s.Save("testing", "use table tests", "second context", "proj-a")

	after := s.List("", nil)
	assert.Equal(t, before+1, len(after))

	var match Learning
	for _, l := range after {
		if l.Category == "testing" && l.Rule == "Use Table Tests" {
			match = l
		}
	}
	assert.Equal(t, "second context", match.Context)
	assert.Equal(t, "proj-a", match.Project)
}

func TestSaveDerivesTechKeywordTags(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "learnings.json"), fixedClock(time.Unix(200, 0)))
	require.NoError(t, err)

	l := s.Save("database", "always pool postgres connections", "avoid exhausting the connection limit", "")
	assert.Contains(t, l.Tags, "database")
	assert.Contains(t, l.Tags, "postgres")
}

func TestListFiltersByProjectScope(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "learnings.json"), fixedClock(time.Unix(300, 0)))
	require.NoError(t, err)

	s.Save("general", "universal rule", "", "")
	s.Save("general", "scoped rule", "", "proj-a")
	s.Save("general", "other scoped rule", "", "proj-b")

	scoped := s.List("", map[string]bool{"proj-a": true})
	var rules []string
	for _, l := range scoped {
		rules = append(rules, l.Rule)
	}
	assert.Contains(t, rules, "universal rule")
	assert.Contains(t, rules, "scoped rule")
	assert.NotContains(t, rules, "other scoped rule")
}

func TestDeleteRemovesById(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "learnings.json"), fixedClock(time.Unix(400, 0)))
	require.NoError(t, err)

	l := s.Save("general", "to be deleted", "", "")
	require.True(t, s.Delete(l.ID))
	for _, got := range s.List("", nil) {
		assert.NotEqual(t, l.ID, got.ID)
	}
	assert.False(t, s.Delete("no-such-id"))
}

func TestSearchRanksRuleHitsAboveContextHits(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "learnings.json"), fixedClock(time.Unix(500, 0)))
	require.NoError(t, err)

	s.Save("general", "rotate credentials regularly", "unrelated filler text", "")
	s.Save("general", "unrelated rule text", "always rotate credentials in staging", "")

	results := s.Search("rotate credentials")
	require.GreaterOrEqual(t, len(results), 2)
	assert.Equal(t, "rotate credentials regularly", results[0].Rule)
}

func TestImportFromMarkdownFile(t *testing.T) {
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "learnings.md")
	md := "## Testing\n\n### prefer integration tests\n\n#### context\nthey catch real regressions\n\n- [security] rotate keys quarterly → reduces blast radius of a leak\n"
	require.NoError(t, os.WriteFile(mdPath, []byte(md), 0o644))

	s, err := Open(filepath.Join(dir, "learnings.json"), fixedClock(time.Unix(600, 0)))
	require.NoError(t, err)

	n, err := s.ImportFromFile(mdPath, "general", "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all := s.List("", nil)
	var foundTesting, foundSecurity bool
	for _, l := range all {
		if l.Rule == "prefer integration tests" {
			foundTesting = true
			assert.Equal(t, "testing", l.Category)
			assert.Contains(t, l.Context, "they catch real regressions")
		}
		if l.Rule == "rotate keys quarterly" {
			foundSecurity = true
			assert.Equal(t, "security", l.Category)
			assert.Equal(t, "reduces blast radius of a leak", l.Context)
		}
	}
	assert.True(t, foundTesting)
	assert.True(t, foundSecurity)
}

func TestImportFromJSONFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "learnings.json.import")
	jsonPath = filepath.Join(dir, "import.json")
	body := `[{"category":"performance","rule":"cache hot reads","context":"avoid redundant db round trips"}]`
	require.NoError(t, os.WriteFile(jsonPath, []byte(body), 0o644))

	s, err := Open(filepath.Join(dir, "learnings.json"), fixedClock(time.Unix(700, 0)))
	require.NoError(t, err)

	n, err := s.ImportFromFile(jsonPath, "general", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNormalizeCategoryFallsBackToGeneral(t *testing.T) {
	assert.Equal(t, "general", normalizeCategory("Completely Unrelated Heading"))
	assert.Equal(t, "testing", normalizeCategory("Testing Notes"))
}
