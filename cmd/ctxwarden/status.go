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
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/internal/ui"
)

// statusResult is the status command's JSON payload.
type statusResult struct {
	DataDir     string    `json:"data_dir"`
	Sources     int       `json:"sources"`
	Chunks      int       `json:"chunks"`
	Fingerprint string    `json:"fingerprint"`
	ReindexedAt time.Time `json:"reindexed_at"`
	Learnings   int       `json:"learnings"`
}

// runStatus displays the current indexer state: data dir, source and
// chunk totals, stored learnings, and the time and fingerprint of the
// last reindex. It does not trigger a reindex itself.
func runStatus(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ctxwarden status [options]

Display the current indexer state: chunk count, source count, the
fingerprint of the last reindex, and how many learnings are stored.
Does not trigger a reindex; run "ctxwarden reindex" first.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	a, err := newApp()
	if err != nil {
		fmt.Fprint(os.Stderr, errors.FatalError(err, globals.JSON))
		return 1
	}

	st := a.indexer.State()
	result := statusResult{
		DataDir:     a.root,
		Sources:     len(st.Sources),
		Chunks:      len(st.Chunks),
		Fingerprint: st.Fingerprint,
		ReindexedAt: st.ReindexedAt,
		Learnings:   len(a.learningStore.List("", nil)),
	}

	if globals.JSON {
		data, merr := json.MarshalIndent(result, "", "  ")
		if merr != nil {
			fmt.Fprint(os.Stderr, errors.FatalError(merr, true))
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	ui.Header("ctxwarden status")
	fmt.Printf("  %s %s\n", ui.Label("Data dir:"), result.DataDir)
	fmt.Printf("  %s %d\n", ui.Label("Sources:"), result.Sources)
	fmt.Printf("  %s %d\n", ui.Label("Chunks:"), result.Chunks)
	fmt.Printf("  %s %d\n", ui.Label("Learnings:"), result.Learnings)
	if result.ReindexedAt.IsZero() {
		fmt.Printf("  %s never (run \"ctxwarden reindex\")\n", ui.Label("Last reindex:"))
	} else {
		fmt.Printf("  %s %s (%s)\n", ui.Label("Last reindex:"), result.ReindexedAt.Format(time.RFC3339), result.Fingerprint)
	}
	return 0
}
