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

// Package config loads ctxwarden's JSON configuration file and resolves
// it into the concrete source and workspace-project lists the indexer
// consumes (spec §4 data model, §6 external interfaces).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

// EnvConfigPath is the environment variable consulted first during
// config discovery (spec §6: "discovery order: env-var path, CWD, user
// home").
const EnvConfigPath = "CTXWARDEN_CONFIG_PATH"

const configFileName = "ctxwarden.json"

// AdapterConfig describes one plugin adapter entry from the config file.
type AdapterConfig struct {
	Name    string                 `json:"name"`
	Module  string                 `json:"module"`
	Config  map[string]interface{} `json:"config,omitempty"`
	Enabled bool                   `json:"enabled"`
}

// SourceEntry is one explicit Markdown/code source declaration.
type SourceEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// defaultPatterns is the filename set sought under every workspace root
// when Patterns is unset (spec §6).
var defaultPatterns = []string{
	".github/copilot-instructions.md",
	".github/SKILLS.md",
	"CLAUDE.md",
	".cursorrules",
	".cursor/rules",
	"AGENTS.md",
}

// Config is the top-level ctxwarden.json schema (spec §6).
type Config struct {
	SourceEntries    []SourceEntry   `json:"sources,omitempty"`
	Workspaces       []string        `json:"workspaces,omitempty"`
	Patterns         []string        `json:"patterns,omitempty"`
	CodeDirs         []string        `json:"codeDirs,omitempty"`
	CollectOps       *bool           `json:"collectOps,omitempty"`
	CollectSystemOps *bool           `json:"collectSystemOps,omitempty"`
	Adapters         []AdapterConfig `json:"adapters,omitempty"`

	// configDir is the directory containing the loaded config file;
	// relative source paths resolve against it (spec §6: "path resolved
	// relative to the config file").
	configDir string
}

// Default returns a Config with sensible zero-configuration defaults:
// no explicit sources, the current directory as the sole workspace, and
// both collector classes enabled.
func Default() *Config {
	t := true
	return &Config{
		Workspaces:       []string{"."},
		Patterns:         append([]string(nil), defaultPatterns...),
		CollectOps:       &t,
		CollectSystemOps: &t,
	}
}

// CollectOpsEnabled reports whether project-scoped collectors should run
// (spec §6, field `collectOps`; default true).
func (c *Config) CollectOpsEnabled() bool {
	return c.CollectOps == nil || *c.CollectOps
}

// CollectSystemOpsEnabled reports whether system-scoped collectors
// should run (spec §6, field `collectSystemOps`; default true).
func (c *Config) CollectSystemOpsEnabled() bool {
	return c.CollectSystemOps == nil || *c.CollectSystemOps
}

// PatternsOrDefault returns c.Patterns if set, else the built-in default
// set.
func (c *Config) PatternsOrDefault() []string {
	if len(c.Patterns) > 0 {
		return c.Patterns
	}
	return defaultPatterns
}

// Load discovers and parses the config file. Discovery order (spec §6):
// the CTXWARDEN_CONFIG_PATH environment variable, then ctxwarden.json in
// the current directory, then in the user's home directory. If none is
// found, Load returns Default() with no error — an unconfigured run is
// not an error condition (spec §7, "Missing input ... never abort").
func Load() (*Config, error) {
	path := discoverPath()
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile parses the config file at path explicitly.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(
			"Cannot read configuration file",
			fmt.Sprintf("Failed to read %s", path),
			"Check the file exists and is readable",
			err,
		)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.New(
			"Invalid configuration format",
			fmt.Sprintf("%s is not valid JSON", path),
			"Fix the syntax error, or delete the file to fall back to defaults",
			err,
		)
	}
	cfg.configDir = filepath.Dir(path)
	if len(cfg.Workspaces) == 0 {
		cfg.Workspaces = []string{"."}
	}
	return &cfg, nil
}

func discoverPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		if fileExists(p) {
			return p
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, configFileName)
		if fileExists(p) {
			return p
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, configFileName)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Sources resolves the configured explicit sources plus every pattern
// match discovered under each workspace into a flat, deduplicated
// KnowledgeSource list (spec §4 data model: "Discovery is declarative").
func (c *Config) Sources() []chunk.KnowledgeSource {
	var out []chunk.KnowledgeSource
	seen := make(map[string]bool)

	for _, s := range c.SourceEntries {
		path := s.Path
		if !filepath.IsAbs(path) && c.configDir != "" {
			path = filepath.Join(c.configDir, path)
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		out = append(out, chunk.KnowledgeSource{Name: s.Name, Path: path, Type: sourceTypeOf(path)})
	}

	for _, ws := range c.WorkspaceProjects() {
		for _, pattern := range c.PatternsOrDefault() {
			path := filepath.Join(ws.Path, pattern)
			if seen[path] || !fileExists(path) {
				continue
			}
			seen[path] = true
			out = append(out, chunk.KnowledgeSource{
				Name: ws.Name + "/" + pattern,
				Path: path,
				Type: sourceTypeOf(path),
			})
		}
	}
	return out
}

func sourceTypeOf(path string) chunk.SourceType {
	if filepath.Ext(path) == ".md" {
		return chunk.SourceMarkdown
	}
	return chunk.SourceMarkdown // every discovery-pattern match is a Markdown-style doc; code comes from codeDirs
}

// WorkspaceProjects resolves each configured workspace root into the list
// of project directories found directly under it: each workspace root
// itself is one project, and any immediate subdirectory containing a
// .git directory is a sibling project (a typical multi-repo workspace
// layout). Non-existent roots are skipped (spec §7, "Missing input").
func (c *Config) WorkspaceProjects() []chunk.ProjectDirectory {
	var out []chunk.ProjectDirectory
	for _, root := range c.Workspaces {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			continue
		}
		out = append(out, chunk.ProjectDirectory{Name: filepath.Base(abs), Path: abs})

		entries, err := os.ReadDir(abs)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			candidate := filepath.Join(abs, e.Name())
			if fileExists(filepath.Join(candidate, ".git")) || dirExists(filepath.Join(candidate, ".git")) {
				out = append(out, chunk.ProjectDirectory{Name: e.Name(), Path: candidate})
			}
		}
	}
	return out
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CodeDirsFor returns the absolute per-project code directories to scan
// for project (spec §6, field `codeDirs`), resolving each configured
// relative directory against project.Path.
func (c *Config) CodeDirsFor(project chunk.ProjectDirectory) []string {
	var out []string
	for _, d := range c.CodeDirs {
		out = append(out, filepath.Join(project.Path, d))
	}
	return out
}
