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

package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

const gitLogLimit = 50
const gitLogBatchSize = 10

// ProjectCollectors runs every project-scoped collector against one
// workspace project and returns the combined chunk set. Each sub-collector
// is independently best-effort: a failure in one never prevents the
// others from running (spec §4.3, §7 "External process failure").
func ProjectCollectors(ctx context.Context, run Runner, project chunk.ProjectDirectory) []chunk.Chunk {
	var out []chunk.Chunk
	out = append(out, GitLog(ctx, run, project)...)
	out = append(out, Manifests(project)...)
	out = append(out, DotEnv(project)...)
	out = append(out, ComposeFiles(project)...)
	out = append(out, EcosystemConfigFiles(project)...)
	return out
}

// GitLog collects the latest 50 commits of project's repository, batched
// 10 per chunk, plus a header chunk summarizing branch/remotes/diff-stat
// (spec §4.3).
func GitLog(ctx context.Context, run Runner, project chunk.ProjectDirectory) []chunk.Chunk {
	branch := strings.TrimSpace(run.Run(ctx, project.Path, "git", "rev-parse", "--abbrev-ref", "HEAD"))
	if branch == "" {
		return nil // not a git repo, or git unavailable
	}
	remotes := strings.TrimSpace(run.Run(ctx, project.Path, "git", "remote", "-v"))
	diffStat := strings.TrimSpace(run.Run(ctx, project.Path, "git", "diff", "--stat"))

	source := "git-log:" + project.Name
	now := time.Now().UTC()

	header := fmt.Sprintf("branch: %s\nremotes:\n%s\nuncommitted diff-stat:\n%s", branch, remotes, diffStat)
	chunks := []chunk.Chunk{
		{Source: source, Section: "header", Content: header, StartLine: 1, EndLine: 1, IndexedAt: now},
	}

	log := run.Run(ctx, project.Path, "git", "log",
		fmt.Sprintf("-n%d", gitLogLimit), "--format=%h|%ad|%an|%s", "--date=short")
	lines := nonEmptyLines(log)

	for i := 0; i < len(lines); i += gitLogBatchSize {
		end := i + gitLogBatchSize
		if end > len(lines) {
			end = len(lines)
		}
		batch := strings.Join(lines[i:end], "\n")
		chunks = append(chunks, chunk.Chunk{
			Source:    source,
			Section:   fmt.Sprintf("commits %d-%d", i+1, end),
			Content:   batch,
			StartLine: i + 1,
			EndLine:   end,
			IndexedAt: now,
		})
	}
	return chunks
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// Manifests reads package.json and composer.json in project's root and
// emits separate chunks for identity, scripts, deps, and dev-deps per
// manifest found (spec §4.3).
func Manifests(project chunk.ProjectDirectory) []chunk.Chunk {
	var out []chunk.Chunk
	out = append(out, npmManifest(project)...)
	out = append(out, composerManifest(project)...)
	return out
}

func npmManifest(project chunk.ProjectDirectory) []chunk.Chunk {
	data, err := os.ReadFile(filepath.Join(project.Path, "package.json"))
	if err != nil {
		return nil
	}
	var m struct {
		Name            string            `json:"name"`
		Version         string            `json:"version"`
		Description     string            `json:"description"`
		Scripts         map[string]string `json:"scripts"`
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if json.Unmarshal(data, &m) != nil {
		return nil
	}
	source := "package.json:" + project.Name
	now := time.Now().UTC()

	var out []chunk.Chunk
	identity := fmt.Sprintf("name: %s\nversion: %s\ndescription: %s", m.Name, m.Version, m.Description)
	out = append(out, chunk.Chunk{Source: source, Section: "identity", Content: identity, StartLine: 1, EndLine: 1, IndexedAt: now})

	if len(m.Scripts) > 0 {
		out = append(out, chunk.Chunk{Source: source, Section: "scripts", Content: formatStringMap(m.Scripts), StartLine: 1, EndLine: 1, IndexedAt: now})
	}
	if len(m.Dependencies) > 0 {
		out = append(out, chunk.Chunk{Source: source, Section: "dependencies", Content: formatStringMap(m.Dependencies), StartLine: 1, EndLine: 1, IndexedAt: now})
	}
	if len(m.DevDependencies) > 0 {
		out = append(out, chunk.Chunk{Source: source, Section: "devDependencies", Content: formatStringMap(m.DevDependencies), StartLine: 1, EndLine: 1, IndexedAt: now})
	}
	return out
}

func composerManifest(project chunk.ProjectDirectory) []chunk.Chunk {
	data, err := os.ReadFile(filepath.Join(project.Path, "composer.json"))
	if err != nil {
		return nil
	}
	var m struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Scripts     map[string]string `json:"scripts"`
		Require     map[string]string `json:"require"`
		RequireDev  map[string]string `json:"require-dev"`
	}
	if json.Unmarshal(data, &m) != nil {
		return nil
	}
	source := "composer.json:" + project.Name
	now := time.Now().UTC()

	var out []chunk.Chunk
	identity := fmt.Sprintf("name: %s\ndescription: %s", m.Name, m.Description)
	out = append(out, chunk.Chunk{Source: source, Section: "identity", Content: identity, StartLine: 1, EndLine: 1, IndexedAt: now})

	if len(m.Scripts) > 0 {
		out = append(out, chunk.Chunk{Source: source, Section: "scripts", Content: formatStringMap(m.Scripts), StartLine: 1, EndLine: 1, IndexedAt: now})
	}
	if len(m.Require) > 0 {
		out = append(out, chunk.Chunk{Source: source, Section: "require", Content: formatStringMap(m.Require), StartLine: 1, EndLine: 1, IndexedAt: now})
	}
	if len(m.RequireDev) > 0 {
		out = append(out, chunk.Chunk{Source: source, Section: "require-dev", Content: formatStringMap(m.RequireDev), StartLine: 1, EndLine: 1, IndexedAt: now})
	}
	return out
}

func formatStringMap(m map[string]string) string {
	var sb strings.Builder
	for k, v := range m {
		fmt.Fprintf(&sb, "%s: %s\n", k, v)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// DotEnv reads project's .env file, strips comment lines, redacts secret
// values, and returns a single chunk (spec §4.3).
func DotEnv(project chunk.ProjectDirectory) []chunk.Chunk {
	return envFileChunk(project.Name, filepath.Join(project.Path, ".env"))
}

func envFileChunk(label, path string) []chunk.Chunk {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var kept []string
	for _, l := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		kept = append(kept, l)
	}
	if len(kept) == 0 {
		return nil
	}
	content := Redact(strings.Join(kept, "\n"))
	return []chunk.Chunk{{
		Source:    ".env:" + label,
		Section:   "environment",
		Content:   content,
		StartLine: 1,
		EndLine:   len(kept),
		IndexedAt: time.Now().UTC(),
	}}
}

// ComposeFiles reads docker-compose.yml/yaml or compose.yml/yaml from
// project's root, redacted verbatim (spec §4.3).
func ComposeFiles(project chunk.ProjectDirectory) []chunk.Chunk {
	candidates := []string{"docker-compose.yml", "docker-compose.yaml", "compose.yml", "compose.yaml"}
	var out []chunk.Chunk
	for _, name := range candidates {
		data, err := os.ReadFile(filepath.Join(project.Path, name))
		if err != nil {
			continue
		}
		out = append(out, chunk.Chunk{
			Source:    name + ":" + project.Name,
			Section:   "compose",
			Content:   Redact(string(data)),
			StartLine: 1,
			EndLine:   strings.Count(string(data), "\n") + 1,
			IndexedAt: time.Now().UTC(),
		})
	}
	return out
}

// EcosystemConfigFiles reads process-manager ecosystem config files (e.g.
// PM2's ecosystem.config.js/json) from project's root (spec §4.3).
func EcosystemConfigFiles(project chunk.ProjectDirectory) []chunk.Chunk {
	candidates := []string{"ecosystem.config.js", "ecosystem.config.json", "ecosystem.config.cjs"}
	var out []chunk.Chunk
	for _, name := range candidates {
		data, err := os.ReadFile(filepath.Join(project.Path, name))
		if err != nil {
			continue
		}
		out = append(out, chunk.Chunk{
			Source:    name + ":" + project.Name,
			Section:   "ecosystem-config",
			Content:   string(data),
			StartLine: 1,
			EndLine:   strings.Count(string(data), "\n") + 1,
			IndexedAt: time.Now().UTC(),
		})
	}
	return out
}
