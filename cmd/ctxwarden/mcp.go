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

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/internal/metrics"
	"github.com/kraklabs/ctxwarden/pkg/rank"
)

const (
	mcpVersion    = "0.1.0"
	mcpServerName = "ctxwarden"
)

const ctxwardenInstructions = `ctxwarden indexes this project's docs, code signatures, operational
history and saved learnings into one hybrid-search corpus, and wraps
every response in a compliance firewall that tracks whether you are
saving learnings, persisting session state, and keeping docs and git
status current. A status block may be prepended or appended to tool
output once enough rounds pass without remedial action; heed it.

Tools:
- search_context(query, top_k, mode) — hybrid/keyword/semantic search over the indexed corpus.
- list_sources() — every indexed source with its chunk count.
- read_source(name) — full content of one source by name.
- reindex() — force a full corpus rebuild.
- save_learning / list_learnings / import_learnings / delete_learning — the operational-rule store.
- save_session / load_session / list_sessions / end_session — per-name scratch state that survives across calls.
`

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type mcpServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type mcpCapabilities struct {
	Tools map[string]any `json:"tools,omitempty"`
}

type mcpInitializeResult struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    mcpCapabilities `json:"capabilities"`
	ServerInfo      mcpServerInfo   `json:"serverInfo"`
	Instructions    string          `json:"instructions"`
}

type mcpTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type mcpToolsListResult struct {
	Tools []mcpTool `json:"tools"`
}

type mcpToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type mcpToolResult struct {
	Content []mcpContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

type mcpContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// runMCPServer starts the ctxwarden MCP server: a JSON-RPC 2.0 loop over
// stdin/stdout exposing the C13 tool dispatcher.
func runMCPServer() {
	a, err := newApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.FatalError(err, false))
		os.Exit(1)
	}
	serveMCPLoop(a)
}

func serveMCPLoop(a *app) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req jsonRPCRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			fmt.Fprintf(os.Stderr, "invalid MCP request: %v\n", err)
			continue
		}

		resp := a.handleRequest(context.Background(), req)
		if resp.ID == nil && resp.Result == nil && resp.Error == nil {
			continue
		}

		respBytes, err := json.Marshal(resp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot encode MCP response: %v\n", err)
			continue
		}
		_, _ = fmt.Fprintf(os.Stdout, "%s\n", respBytes)
	}

	a.fw.Flush()
}

func (a *app) handleRequest(ctx context.Context, req jsonRPCRequest) jsonRPCResponse {
	switch req.Method {
	case "initialize":
		return jsonRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result: mcpInitializeResult{
				ProtocolVersion: "2024-11-05",
				Capabilities:    mcpCapabilities{Tools: map[string]any{"listChanged": true}},
				ServerInfo:      mcpServerInfo{Name: mcpServerName, Version: mcpVersion},
				Instructions:    ctxwardenInstructions,
			},
		}

	case "notifications/initialized":
		return jsonRPCResponse{}

	case "tools/list":
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: mcpToolsListResult{Tools: mcpToolDefs}}

	case "tools/call":
		var params mcpToolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "Invalid params", Data: err.Error()}}
		}
		result := a.handleToolCall(ctx, params)
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}

	default:
		return jsonRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "Method not found", Data: req.Method}}
	}
}

type mcpHandler func(ctx context.Context, a *app, args map[string]any) (text string, isError bool)

var mcpHandlers = map[string]mcpHandler{
	"search_context":   handleSearchContext,
	"list_sources":     handleListSources,
	"read_source":      handleReadSource,
	"reindex":          handleReindexTool,
	"save_learning":    handleSaveLearning,
	"list_learnings":   handleListLearnings,
	"import_learnings": handleImportLearnings,
	"delete_learning":  handleDeleteLearning,
	"save_session":     handleSaveSession,
	"load_session":     handleLoadSession,
	"list_sessions":    handleListSessions,
	"end_session":      handleEndSession,
	"list_projects":    handlePremium,
	"check_ports":      handlePremium,
	"run_audit":        handlePremium,
	"score_project":    handlePremium,
}

func (a *app) handleToolCall(ctx context.Context, params mcpToolCallParams) *mcpToolResult {
	handler, ok := mcpHandlers[params.Name]
	if !ok {
		return &mcpToolResult{IsError: true, Content: []mcpContent{{Type: "text", Text: "unknown tool: " + params.Name}}}
	}

	metrics.ToolCallsTotal.WithLabelValues(params.Name, "dispatched").Inc()
	text, isError := handler(ctx, a, params.Arguments)
	hint := stringArg(params.Arguments, "query")
	if hint == "" {
		hint = stringArg(params.Arguments, "name")
	}
	wrapped := a.fw.Wrap(params.Name, text, hint)
	return &mcpToolResult{Content: []mcpContent{{Type: "text", Text: wrapped}}, IsError: isError}
}

func handlePremium(ctx context.Context, a *app, args map[string]any) (string, bool) {
	return "this operation requires a license; this build treats it as an external collaborator and cannot run it directly", true
}

func handleSearchContext(ctx context.Context, a *app, args map[string]any) (string, bool) {
	query := stringArg(args, "query")
	if query == "" {
		return "search_context requires a non-empty query", true
	}
	topK := intArg(args, "top_k", 10)
	if topK > 30 {
		topK = 30
	}
	mode := rank.Mode(stringArg(args, "mode"))
	if mode == "" {
		mode = rank.ModeHybrid
	}

	hits := a.indexer.Search(query, mode, topK)
	if len(hits) == 0 {
		return "no results", false
	}

	var b strings.Builder
	for i, h := range hits {
		label := labelString(h.Label)
		fmt.Fprintf(&b, "%d. [%s score=%.3f] %s %s\n%s\n\n", i+1, label, h.Combined, h.Chunk.Source, h.Chunk.Section, truncateText(h.Chunk.Content, 400))
	}
	return strings.TrimRight(b.String(), "\n"), false
}

func labelString(l rank.Label) string {
	switch {
	case l.Keyword && l.Semantic:
		return "kw+sem"
	case l.Keyword:
		return "kw"
	case l.Semantic:
		return "sem"
	default:
		return "age"
	}
}

func handleListSources(ctx context.Context, a *app, args map[string]any) (string, bool) {
	st := a.indexer.State()
	if len(st.Sources) == 0 {
		return "no sources indexed; run reindex first", false
	}
	counts := make(map[string]int, len(st.Sources))
	for _, c := range st.Chunks {
		counts[c.Source]++
	}
	var b strings.Builder
	for _, src := range st.Sources {
		fmt.Fprintf(&b, "%s (%s): %d chunks\n", src.Name, src.Type, counts[src.Name])
	}
	return strings.TrimRight(b.String(), "\n"), false
}

func handleReadSource(ctx context.Context, a *app, args map[string]any) (string, bool) {
	name := stringArg(args, "name")
	if name == "" {
		return "read_source requires name", true
	}
	st := a.indexer.State()
	lowerName := strings.ToLower(name)
	for _, src := range st.Sources {
		if strings.ToLower(src.Name) == lowerName {
			data, err := os.ReadFile(src.Path)
			if err != nil {
				return fmt.Sprintf("cannot read %s: %v", src.Path, err), true
			}
			return string(data), false
		}
	}
	return fmt.Sprintf("no source named %q", name), true
}

func handleReindexTool(ctx context.Context, a *app, args map[string]any) (string, bool) {
	if err := a.indexer.Reindex(ctx); err != nil {
		return "reindex failed: " + err.Error(), true
	}
	st := a.indexer.State()
	return fmt.Sprintf("reindexed %d chunks from %d sources", len(st.Chunks), len(st.Sources)), false
}

func handleSaveLearning(ctx context.Context, a *app, args map[string]any) (string, bool) {
	category := stringArg(args, "category")
	rule := stringArg(args, "rule")
	if category == "" || rule == "" {
		return "save_learning requires category and rule", true
	}
	l := a.learningStore.Save(category, rule, stringArg(args, "context"), stringArg(args, "project"))
	metrics.LearningsSavedTotal.Inc()
	return fmt.Sprintf("saved learning %s [%s] %s", l.ID, l.Category, l.Rule), false
}

func handleListLearnings(ctx context.Context, a *app, args map[string]any) (string, bool) {
	learnings := a.learningStore.List(stringArg(args, "category"), nil)
	if len(learnings) == 0 {
		return "no learnings saved", false
	}
	var b strings.Builder
	for _, l := range learnings {
		fmt.Fprintf(&b, "%s [%s] %s\n", l.ID, l.Category, l.Rule)
	}
	return strings.TrimRight(b.String(), "\n"), false
}

func handleImportLearnings(ctx context.Context, a *app, args map[string]any) (string, bool) {
	path := stringArg(args, "path")
	if path == "" {
		return "import_learnings requires path", true
	}
	n, err := a.learningStore.ImportFromFile(path, stringArg(args, "default_category"), stringArg(args, "project"))
	if err != nil {
		return "import failed: " + err.Error(), true
	}
	return fmt.Sprintf("imported %d learnings from %s", n, path), false
}

func handleDeleteLearning(ctx context.Context, a *app, args map[string]any) (string, bool) {
	id := stringArg(args, "id")
	if id == "" {
		return "delete_learning requires id", true
	}
	if !a.learningStore.Delete(id) {
		return fmt.Sprintf("no learning with id %s", id), true
	}
	return "deleted " + id, false
}

func handleSaveSession(ctx context.Context, a *app, args map[string]any) (string, bool) {
	name := stringArg(args, "name")
	key := stringArg(args, "key")
	value := stringArg(args, "value")
	if name == "" || key == "" {
		return "save_session requires name and key", true
	}
	if err := a.sessionStore.Save(name, key, value); err != nil {
		return "save_session failed: " + err.Error(), true
	}
	return fmt.Sprintf("saved %s.%s", name, key), false
}

func handleLoadSession(ctx context.Context, a *app, args map[string]any) (string, bool) {
	name := stringArg(args, "name")
	if name == "" {
		return "load_session requires name", true
	}
	entries, err := a.sessionStore.Load(name)
	if err != nil {
		return "load_session failed: " + err.Error(), true
	}
	if len(entries) == 0 {
		return fmt.Sprintf("no session named %s", name), false
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s = %s\n", e.Key, e.Value)
	}
	return strings.TrimRight(b.String(), "\n"), false
}

func handleListSessions(ctx context.Context, a *app, args map[string]any) (string, bool) {
	names, err := a.sessionStore.List()
	if err != nil {
		return "list_sessions failed: " + err.Error(), true
	}
	if len(names) == 0 {
		return "no sessions saved", false
	}
	return strings.Join(names, "\n"), false
}

func handleEndSession(ctx context.Context, a *app, args map[string]any) (string, bool) {
	name := stringArg(args, "name")
	if name == "" {
		return "end_session requires name", true
	}
	if err := a.sessionStore.Delete(name); err != nil {
		return "end_session failed: " + err.Error(), true
	}
	return "ended " + name, false
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intArg(args map[string]any, key string, fallback int) int {
	if v, ok := args[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return fallback
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func schema(props map[string]any, required ...string) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func strProp(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }

var mcpToolDefs = []mcpTool{
	{
		Name:        "search_context",
		Description: "Hybrid (keyword + semantic) search over the indexed docs, code signatures, collectors and learnings.",
		InputSchema: schema(map[string]any{
			"query":  strProp("search text"),
			"top_k":  map[string]any{"type": "integer", "description": "max results, capped at 30"},
			"mode":   map[string]any{"type": "string", "enum": []string{"hybrid", "keyword", "semantic"}},
		}, "query"),
	},
	{
		Name:        "list_sources",
		Description: "List every indexed source with its chunk count.",
		InputSchema: schema(map[string]any{}),
	},
	{
		Name:        "read_source",
		Description: "Return the full content of one source by exact (case-insensitive) name.",
		InputSchema: schema(map[string]any{"name": strProp("source name as shown by list_sources")}, "name"),
	},
	{
		Name:        "reindex",
		Description: "Force a full rebuild of the chunk corpus.",
		InputSchema: schema(map[string]any{}),
	},
	{
		Name:        "save_learning",
		Description: "Persist an operational rule so future sessions recall it.",
		InputSchema: schema(map[string]any{
			"category": strProp("short category label"),
			"rule":     strProp("the rule text"),
			"context":  strProp("optional supporting context"),
			"project":  strProp("optional project scope"),
		}, "category", "rule"),
	},
	{
		Name:        "list_learnings",
		Description: "List saved learnings, optionally filtered by category.",
		InputSchema: schema(map[string]any{"category": strProp("optional category filter")}),
	},
	{
		Name:        "import_learnings",
		Description: "Bulk-import learnings from a Markdown or JSON file.",
		InputSchema: schema(map[string]any{
			"path":             strProp("file path"),
			"default_category": strProp("category for entries without an explicit heading"),
			"project":          strProp("optional project scope"),
		}, "path"),
	},
	{
		Name:        "delete_learning",
		Description: "Delete a learning by id.",
		InputSchema: schema(map[string]any{"id": strProp("learning id")}, "id"),
	},
	{
		Name:        "save_session",
		Description: "Upsert a key/value pair into a named scratch session.",
		InputSchema: schema(map[string]any{
			"name":  strProp("session name"),
			"key":   strProp("entry key"),
			"value": strProp("entry value"),
		}, "name", "key", "value"),
	},
	{
		Name:        "load_session",
		Description: "Load every entry saved into a named session.",
		InputSchema: schema(map[string]any{"name": strProp("session name")}, "name"),
	},
	{
		Name:        "list_sessions",
		Description: "List every saved session name.",
		InputSchema: schema(map[string]any{}),
	},
	{
		Name:        "end_session",
		Description: "Delete a named session.",
		InputSchema: schema(map[string]any{"name": strProp("session name")}, "name"),
	},
	{
		Name:        "list_projects",
		Description: "Premium: list workspace projects with compliance scoring.",
		InputSchema: schema(map[string]any{}),
	},
	{
		Name:        "check_ports",
		Description: "Premium: check listening ports against expected services.",
		InputSchema: schema(map[string]any{}),
	},
	{
		Name:        "run_audit",
		Description: "Premium: run a full compliance/security audit over the workspace.",
		InputSchema: schema(map[string]any{}),
	},
	{
		Name:        "score_project",
		Description: "Premium: score a project's operational compliance.",
		InputSchema: schema(map[string]any{}),
	},
}
