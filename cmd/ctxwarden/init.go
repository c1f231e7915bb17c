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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/internal/ui"
)

type initConfigFile struct {
	Workspaces []string `json:"workspaces"`
	CodeDirs   []string `json:"codeDirs,omitempty"`
}

// runInit writes a ctxwarden.json to the current directory, either from
// defaults (-y) or after a short interactive prompt for extra code dirs.
func runInit(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing ctxwarden.json")
	nonInteractive := fs.BoolP("yes", "y", false, "Use defaults, skip prompts")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ctxwarden init [options]

Create a ctxwarden.json configuration file in the current directory.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	const path = "ctxwarden.json"
	if _, statErr := os.Stat(path); statErr == nil && !*force {
		fmt.Fprint(os.Stderr, errors.FatalError(errors.New(
			"ctxwarden.json already exists",
			"Refusing to overwrite an existing configuration file",
			"Pass --force to overwrite it",
			nil,
		), globals.JSON))
		return 1
	}

	cfg := initConfigFile{Workspaces: []string{"."}}

	if !*nonInteractive && !globals.Quiet {
		ui.Header("ctxwarden init")
		fmt.Println("Press enter to accept each default.")
		reader := bufio.NewReader(os.Stdin)

		fmt.Print("Additional code directories to index for symbols (comma-separated, blank for none): ")
		line, _ := reader.ReadString('\n')
		for _, dir := range strings.Split(strings.TrimSpace(line), ",") {
			dir = strings.TrimSpace(dir)
			if dir != "" {
				cfg.CodeDirs = append(cfg.CodeDirs, dir)
			}
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		fmt.Fprint(os.Stderr, errors.FatalError(err, globals.JSON))
		return 1
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprint(os.Stderr, errors.FatalError(errors.New(
			"Cannot write ctxwarden.json",
			"Failed to write "+path,
			"Check you have write permission in this directory",
			err,
		), globals.JSON))
		return 1
	}

	ui.Successf("Wrote %s", path)
	return 0
}
