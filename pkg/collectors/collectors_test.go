package collectors

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

// fakeRunner is a scripted Runner for tests: keyed by the joined command
// line, returning canned output.
type fakeRunner struct {
	outputs map[string]string
}

func (f *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) string {
	key := name + " " + strings.Join(args, " ")
	return f.outputs[key]
}

func TestRedactReplacesSecretValues(t *testing.T) {
	in := "DB_PASSWORD=hunter2\nAPI_KEY=abc123\nPORT=8080\n"
	out := Redact(in)
	assert.Contains(t, out, "DB_PASSWORD=[REDACTED]")
	assert.Contains(t, out, "API_KEY=[REDACTED]")
	assert.Contains(t, out, "PORT=8080")
}

func TestGitLogBatchesCommitsAndHeader(t *testing.T) {
	var lines []string
	for i := 0; i < 23; i++ {
		lines = append(lines, "abc1234|2026-01-01|dev|commit message")
	}
	run := &fakeRunner{outputs: map[string]string{
		"git rev-parse --abbrev-ref HEAD":                 "main",
		"git remote -v":                                   "origin git@example.com:x/y.git (fetch)",
		"git diff --stat":                                 "",
		"git log -n50 --format=%h|%ad|%an|%s --date=short": strings.Join(lines, "\n"),
	}}
	project := chunk.ProjectDirectory{Name: "demo", Path: "/repo"}

	chunks := GitLog(context.Background(), run, project)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "header", chunks[0].Section)
	assert.Contains(t, chunks[0].Content, "branch: main")

	// 23 commits batched by 10 -> 3 commit chunks plus the header.
	require.Len(t, chunks, 4)
	assert.Equal(t, "commits 1-10", chunks[1].Section)
	assert.Equal(t, "commits 11-20", chunks[2].Section)
	assert.Equal(t, "commits 21-23", chunks[3].Section)
}

func TestGitLogReturnsNilWhenNotARepo(t *testing.T) {
	run := &fakeRunner{outputs: map[string]string{}}
	project := chunk.ProjectDirectory{Name: "demo", Path: "/not-a-repo"}
	assert.Nil(t, GitLog(context.Background(), run, project))
}

func TestManifestsParsesPackageJSON(t *testing.T) {
	dir := t.TempDir()
	pkg := `{"name":"demo","version":"1.0.0","scripts":{"build":"go build"},"dependencies":{"foo":"^1.0.0"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(pkg), 0o644))

	chunks := Manifests(chunk.ProjectDirectory{Name: "demo", Path: dir})
	require.Len(t, chunks, 3) // identity, scripts, dependencies (no devDependencies)
	assert.Equal(t, "identity", chunks[0].Section)
	assert.Contains(t, chunks[0].Content, "demo")
}

func TestDotEnvStripsCommentsAndRedacts(t *testing.T) {
	dir := t.TempDir()
	env := "# comment\nPORT=8080\nSECRET_KEY=xyz\n\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o644))

	chunks := DotEnv(chunk.ProjectDirectory{Name: "demo", Path: dir})
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0].Content, "# comment")
	assert.Contains(t, chunks[0].Content, "PORT=8080")
	assert.Contains(t, chunks[0].Content, "SECRET_KEY=[REDACTED]")
}

func TestDotEnvMissingFileReturnsNil(t *testing.T) {
	chunks := DotEnv(chunk.ProjectDirectory{Name: "demo", Path: t.TempDir()})
	assert.Nil(t, chunks)
}

func TestShellHistoryDedupsPreservingOrder(t *testing.T) {
	dir := t.TempDir()
	hist := "ls\ncd /tmp\nls\npwd\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".bash_history"), []byte(hist), 0o644))

	chunks := ShellHistory(dir)
	require.Len(t, chunks, 1)
	assert.Equal(t, "ls\ncd /tmp\npwd", chunks[0].Content)
}

func TestCronJobsDropsCommentsAndBlankLines(t *testing.T) {
	run := &fakeRunner{outputs: map[string]string{
		"crontab -l": "# nightly backup\n\n0 2 * * * /usr/bin/backup.sh\n",
	}}
	chunks := CronJobs(context.Background(), run)
	require.Len(t, chunks, 1)
	assert.Equal(t, "0 2 * * * /usr/bin/backup.sh", chunks[0].Content)
}

func TestCronJobsEmptyReturnsNil(t *testing.T) {
	run := &fakeRunner{outputs: map[string]string{}}
	assert.Nil(t, CronJobs(context.Background(), run))
}

func TestVhostDirectivesExtractsKnownKeys(t *testing.T) {
	dir := t.TempDir()
	conf := "server {\n  server_name example.com;\n  listen 443 ssl;\n  root /var/www/html;\n  proxy_pass http://127.0.0.1:3000;\n  access_log /var/log/nginx/access.log;\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.conf"), []byte(conf), 0o644))

	chunks := VhostDirectives([]string{dir})
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "server_name example.com")
	assert.Contains(t, chunks[0].Content, "proxy_pass http://127.0.0.1:3000")
	assert.NotContains(t, chunks[0].Content, "access_log")
}

func TestComposeFilesRedacted(t *testing.T) {
	dir := t.TempDir()
	compose := "services:\n  db:\n    environment:\n      DB_PASSWORD=supersecret\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker-compose.yml"), []byte(compose), 0o644))

	chunks := ComposeFiles(chunk.ProjectDirectory{Name: "demo", Path: dir})
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, "[REDACTED]")
}
