package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

func TestDefaultEnablesBothCollectorClasses(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.CollectOpsEnabled())
	assert.True(t, cfg.CollectSystemOpsEnabled())
	assert.Equal(t, []string{"."}, cfg.Workspaces)
}

func TestLoadFileParsesRecognizedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctxwarden.json")
	body := `{
		"sources": [{"name": "readme", "path": "README.md"}],
		"workspaces": ["."],
		"codeDirs": ["src"],
		"collectOps": false
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.SourceEntries, 1)
	assert.Equal(t, "readme", cfg.SourceEntries[0].Name)
	assert.False(t, cfg.CollectOpsEnabled())
	assert.True(t, cfg.CollectSystemOpsEnabled())
}

func TestLoadFileRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctxwarden.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestSourcesResolvesRelativePathsAgainstConfigDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# hi"), 0o644))

	path := filepath.Join(dir, "ctxwarden.json")
	body, err := json.Marshal(Config{SourceEntries: []SourceEntry{{Name: "readme", Path: "README.md"}}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	sources := cfg.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, filepath.Join(dir, "README.md"), sources[0].Path)
}

func TestWorkspaceProjectsSkipsMissingRoots(t *testing.T) {
	cfg := &Config{Workspaces: []string{"/no/such/workspace-root"}}
	assert.Empty(t, cfg.WorkspaceProjects())
}

func TestWorkspaceProjectsFindsGitSubdirectories(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "svc-a")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, ".git"), 0o755))

	cfg := &Config{Workspaces: []string{root}}
	projects := cfg.WorkspaceProjects()
	require.Len(t, projects, 2) // root itself + svc-a
	names := []string{projects[0].Name, projects[1].Name}
	assert.Contains(t, names, "svc-a")
}

func TestCodeDirsForJoinsProjectPath(t *testing.T) {
	cfg := &Config{CodeDirs: []string{"src", "lib"}}
	project := chunk.ProjectDirectory{Name: "demo", Path: "/repo/demo"}
	dirs := cfg.CodeDirsFor(project)
	require.Len(t, dirs, 2)
	assert.Equal(t, filepath.Join("/repo/demo", "src"), dirs[0])
}
