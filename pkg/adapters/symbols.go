// Copyright 2026 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
	"github.com/kraklabs/ctxwarden/pkg/config"
	"github.com/kraklabs/ctxwarden/pkg/sigparse"
)

var symbolsSkipDirs = map[string]bool{
	"node_modules": true, ".git": true, "dist": true, "build": true,
	".cache": true, "vendor": true, "__pycache__": true, ".venv": true,
}

// symbolNodeTypes maps a tree-sitter language to the node types worth
// surfacing as a standalone symbol (function/method/class/interface
// declarations; bodies are not included, only the signature line).
var symbolNodeTypes = map[string]map[string]bool{
	"go":         {"function_declaration": true, "method_declaration": true, "type_declaration": true},
	"javascript": {"function_declaration": true, "method_definition": true, "class_declaration": true},
	"typescript": {"function_declaration": true, "method_definition": true, "class_declaration": true, "interface_declaration": true},
	"python":     {"function_definition": true, "class_definition": true},
}

// SymbolsAdapter emits one signature-only chunk per top-level symbol
// found by a real grammar parse, as a supplement to codechunk's
// regex-based extraction (spec §4.7 step 7: "each produces chunks,
// tagged with adapter name").
type SymbolsAdapter struct{}

// NewSymbolsAdapter constructs the built-in symbols adapter.
func NewSymbolsAdapter() *SymbolsAdapter { return &SymbolsAdapter{} }

func (a *SymbolsAdapter) Name() string        { return "symbols" }
func (a *SymbolsAdapter) Description() string { return "tree-sitter signature extraction" }

func (a *SymbolsAdapter) Collect(ctx context.Context, cfg *config.Config) ([]chunk.Chunk, error) {
	var out []chunk.Chunk
	for _, proj := range cfg.WorkspaceProjects() {
		for _, dir := range cfg.CodeDirsFor(proj) {
			out = append(out, a.scanDir(proj.Name, dir)...)
		}
	}
	return out, nil
}

func (a *SymbolsAdapter) scanDir(projectLabel, root string) []chunk.Chunk {
	var out []chunk.Chunk
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if symbolsSkipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		lang := symbolLanguageFor(path)
		if lang == "" {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil || len(content) > 200*1024 {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		label := projectLabel + ":" + filepath.ToSlash(rel)
		out = append(out, extractSymbols(label, lang, content)...)
		return nil
	})
	return out
}

func symbolLanguageFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".ts", ".tsx", ".mts":
		return "typescript"
	case ".js", ".jsx", ".mjs":
		return "javascript"
	case ".py":
		return "python"
	default:
		return ""
	}
}

func sitterLanguage(lang string) *sitter.Language {
	switch lang {
	case "go":
		return golang.GetLanguage()
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	case "python":
		return python.GetLanguage()
	default:
		return nil
	}
}

// extractSymbols parses content with lang's grammar and returns one
// chunk per matching top-level symbol node, keyed by its declared name
// where available and its signature line as content.
func extractSymbols(source, lang string, content []byte) []chunk.Chunk {
	sl := sitterLanguage(lang)
	if sl == nil {
		return nil
	}
	wanted := symbolNodeTypes[lang]

	parser := sitter.NewParser()
	parser.SetLanguage(sl)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	var out []chunk.Chunk
	var walk func(node *sitter.Node, depth int)
	walk = func(node *sitter.Node, depth int) {
		if node == nil {
			return
		}
		// Symbols adapter only surfaces declarations at most three levels
		// below the root: top-level ones, methods inside a class body, and
		// functions declared directly in a top-level function's body.
		// Deeper nodes are not visited.
		if depth <= 3 && wanted[node.Type()] {
			if c, ok := symbolChunk(source, lang, node, content); ok {
				out = append(out, c)
			}
		}
		if depth > 3 {
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i), depth+1)
		}
	}
	walk(tree.RootNode(), 0)
	return out
}

func symbolChunk(source, lang string, node *sitter.Node, content []byte) (chunk.Chunk, bool) {
	name := symbolName(node, content)
	if name == "" {
		return chunk.Chunk{}, false
	}
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1
	sig := firstLine(string(content[node.StartByte():node.EndByte()]))
	if sig == "" {
		return chunk.Chunk{}, false
	}
	if lang == "go" && (node.Type() == "function_declaration" || node.Type() == "method_declaration") {
		if params := goParamSummary(sig); params != "" {
			sig += "\n" + params
		}
	}
	return chunk.Chunk{
		Source:    source,
		Section:   name,
		Content:   sig,
		StartLine: startLine,
		EndLine:   endLine,
	}, true
}

// goParamSummary renders a Go function/method signature's parameters as a
// "params: name Type, ..." line, so search hits surface argument shapes
// without pulling in the full body. Signatures tree-sitter hands us are
// already balanced, dependency-free parsing is enough to pull them apart.
func goParamSummary(sig string) string {
	params := sigparse.ParseGoParams(sig)
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Type == "" {
			continue
		}
		if p.Name == "" {
			parts = append(parts, p.Type)
			continue
		}
		parts = append(parts, p.Name+" "+p.Type)
	}
	if len(parts) == 0 {
		return ""
	}
	return "params: " + strings.Join(parts, ", ")
}

func symbolName(node *sitter.Node, content []byte) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return string(content[n.StartByte():n.EndByte()])
	}
	// Go type_declaration wraps a type_spec with its own "name" field.
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "type_spec" {
			if n := child.ChildByFieldName("name"); n != nil {
				return string(content[n.StartByte():n.EndByte()])
			}
		}
	}
	return ""
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}
