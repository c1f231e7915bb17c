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
	"encoding/json"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/internal/ui"
	"github.com/kraklabs/ctxwarden/pkg/config"
)

// runConfigCmd shows the resolved configuration: which file (if any) was
// loaded, and the effective workspaces/patterns/adapters after defaults.
func runConfigCmd(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ctxwarden config [options]

Show the resolved configuration: the config file path (if any was
found), the effective workspace roots, discovery patterns, and
configured adapters after defaults are applied.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	path := resolvedConfigPath()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprint(os.Stderr, errors.FatalError(err, globals.JSON))
		return 1
	}

	if globals.JSON {
		data, merr := json.MarshalIndent(struct {
			ConfigPath string          `json:"config_path,omitempty"`
			Workspaces []string        `json:"workspaces"`
			Patterns   []string        `json:"patterns"`
			CodeDirs   []string        `json:"code_dirs"`
			Adapters   []config.AdapterConfig `json:"adapters,omitempty"`
		}{
			ConfigPath: path,
			Workspaces: cfg.Workspaces,
			Patterns:   cfg.PatternsOrDefault(),
			CodeDirs:   cfg.CodeDirs,
			Adapters:   cfg.Adapters,
		}, "", "  ")
		if merr != nil {
			fmt.Fprint(os.Stderr, errors.FatalError(merr, true))
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	ui.Header("ctxwarden config")
	if path == "" {
		fmt.Printf("  %s (none found, using defaults)\n", ui.Label("Config file:"))
	} else {
		fmt.Printf("  %s %s\n", ui.Label("Config file:"), path)
	}
	fmt.Printf("  %s %v\n", ui.Label("Workspaces:"), cfg.Workspaces)
	fmt.Printf("  %s %v\n", ui.Label("Patterns:"), cfg.PatternsOrDefault())
	if len(cfg.CodeDirs) > 0 {
		fmt.Printf("  %s %v\n", ui.Label("Code dirs:"), cfg.CodeDirs)
	}
	for _, ad := range cfg.Adapters {
		state := "disabled"
		if ad.Enabled {
			state = "enabled"
		}
		fmt.Printf("  %s %s (%s) [%s]\n", ui.Label("Adapter:"), ad.Name, ad.Module, state)
	}
	return 0
}
