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

// Package main implements the ctxwarden CLI and MCP server: a compliance
// firewall and hybrid search layer over a project's operational context
// (docs, code signatures, shell history, git log, saved learnings).
//
// Usage:
//
//	ctxwarden init                 Create ctxwarden.json configuration
//	ctxwarden reindex              Rebuild the chunk corpus
//	ctxwarden search <query>       Run a hybrid search from the CLI
//	ctxwarden status [--json]      Show indexer/firewall status
//	ctxwarden serve                Start the HTTP status/metrics server
//	ctxwarden --mcp                Start as MCP server (JSON-RPC over stdio)
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ctxwarden/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags that apply across every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
}

func main() {
	// Load daemon-level overrides (OLLAMA_BASE_URL, CTXWARDEN_CONFIG_PATH,
	// CTXWARDEN_SERVE_PORT, ...) from a local .env if one is present. This
	// is separate from the project .env files pkg/collectors reads raw as
	// source material; a missing .env here is not an error.
	_ = godotenv.Load()

	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		mcpMode     = flag.Bool("mcp", false, "Start as MCP server (JSON-RPC over stdio)")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
	)

	// Stop parsing at the first non-flag argument so subcommand flags
	// like "reindex --timeout 5m" reach the subcommand handler unmolested.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `ctxwarden - compliance firewall and context search for AI coding agents

ctxwarden indexes a project's docs, code signatures, operational
history and saved learnings into one hybrid search corpus, and wraps
every MCP tool response in a compliance firewall that tracks whether
the agent is saving learnings, persisting session state, and keeping
docs and git status current.

Usage:
  ctxwarden <command> [options]

Commands:
  init        Create ctxwarden.json configuration interactively
  reindex     Rebuild the chunk corpus
  search      Run a hybrid search against the indexed corpus
  status      Show indexer and firewall status
  config      Show resolved configuration
  serve       Start the HTTP status/metrics server
  completion  Generate shell completion script (bash|zsh|fish)

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output
  --mcp             Start as MCP server (JSON-RPC over stdio)
  -V, --version     Show version and exit

Examples:
  ctxwarden init                Create configuration interactively
  ctxwarden reindex             Rebuild the chunk corpus
  ctxwarden status --json       Output status as JSON
  ctxwarden --mcp               Start as MCP server

Data Storage:
  Persistent state lives under ~/.contextengine/ (learnings.json,
  sessions/, session-stats.json, embed-cache.json).

Environment Variables:
  OLLAMA_BASE_URL        Ollama URL (default: http://localhost:11434)
  OLLAMA_EMBED_MODEL     Embedding model (default: nomic-embed-text)
  CTXWARDEN_CONFIG_PATH  Explicit ctxwarden.json path

For detailed command help: ctxwarden <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("ctxwarden version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}

	if *quiet && *verbose > 0 {
		fmt.Fprintln(os.Stderr, "Error: cannot use --quiet and --verbose together")
		os.Exit(1)
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Verbose: *verbose, Quiet: *quiet}
	ui.InitColors(globals.NoColor)

	if *mcpMode {
		runMCPServer()
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		os.Exit(runInit(cmdArgs, globals))
	case "reindex":
		os.Exit(runReindex(cmdArgs, globals))
	case "search":
		os.Exit(runSearch(cmdArgs, globals))
	case "status":
		os.Exit(runStatus(cmdArgs, globals))
	case "config":
		os.Exit(runConfigCmd(cmdArgs, globals))
	case "serve":
		os.Exit(runServe(cmdArgs, globals))
	case "completion":
		os.Exit(runCompletion(cmdArgs, globals))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
