package adapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ctxwarden/pkg/config"
)

func TestResolveSkipsDisabledAndUnknownEntries(t *testing.T) {
	registry := DefaultRegistry()
	cfgs := []config.AdapterConfig{
		{Name: "symbols", Enabled: true},
		{Name: "symbols", Enabled: false},
		{Name: "nonexistent", Enabled: true},
	}
	resolved := Resolve(cfgs, registry)
	require.Len(t, resolved, 1)
	assert.Equal(t, "symbols", resolved[0].Name())
}

func TestSymbolLanguageForRecognizesExtensions(t *testing.T) {
	cases := map[string]string{
		"a.go": "go", "b.ts": "typescript", "c.tsx": "typescript",
		"d.js": "javascript", "e.py": "python", "f.txt": "",
	}
	for path, want := range cases {
		assert.Equal(t, want, symbolLanguageFor(path), path)
	}
}

func TestExtractSymbolsGoFunctionAndType(t *testing.T) {
	src := []byte(`package main

func Greet(name string) string {
	return "hello " + name
}

type Server struct {
	Addr string
}
`)
	chunks := extractSymbols("pkg/main.go", "go", src)
	require.NotEmpty(t, chunks)

	names := map[string]bool{}
	for _, c := range chunks {
		names[c.Section] = true
	}
	assert.True(t, names["Greet"])
	assert.True(t, names["Server"])

	for _, c := range chunks {
		if c.Section == "Greet" {
			assert.Contains(t, c.Content, "params: name string")
		}
	}
}

func TestExtractSymbolsPythonFunctionAndClass(t *testing.T) {
	src := []byte("def handler(request):\n    return request\n\n\nclass Worker:\n    def run(self):\n        pass\n")
	chunks := extractSymbols("pkg/app.py", "python", src)

	var names []string
	for _, c := range chunks {
		names = append(names, c.Section)
	}
	assert.Contains(t, names, "handler")
	assert.Contains(t, names, "Worker")
}

func TestSymbolsAdapterCollectWalksCodeDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.go"),
		[]byte("package main\n\nfunc Run() {}\n"), 0o644))

	cfg := &config.Config{Workspaces: []string{root}, CodeDirs: []string{"src"}}
	a := NewSymbolsAdapter()
	chunks, err := a.Collect(context.Background(), cfg)
	require.NoError(t, err)

	var found bool
	for _, c := range chunks {
		if c.Section == "Run" {
			found = true
		}
	}
	assert.True(t, found)
}
