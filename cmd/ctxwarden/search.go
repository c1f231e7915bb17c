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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/pkg/rank"
)

// runSearch runs the same hybrid search the MCP search_context tool
// exposes, from the CLI, so a human can sanity-check the corpus without
// a connected agent.
func runSearch(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	topK := fs.Int("top-k", 10, "Max results")
	mode := fs.String("mode", "hybrid", "Search mode: hybrid, keyword, or semantic")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ctxwarden search [options] <query>

Run a hybrid (keyword + semantic) search over the indexed corpus and
print the results as a table, or as JSON with --json.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fs.Usage()
		fmt.Fprint(os.Stderr, errors.FatalError(errors.New(
			"Query argument required",
			"No search text provided",
			`Provide a query: ctxwarden search "retry backoff policy"`,
			nil,
		), globals.JSON))
		return 1
	}
	query := strings.Join(fs.Args(), " ")

	a, err := newApp()
	if err != nil {
		fmt.Fprint(os.Stderr, errors.FatalError(err, globals.JSON))
		return 1
	}

	if err := a.indexer.Reindex(context.Background()); err != nil {
		fmt.Fprint(os.Stderr, errors.FatalError(err, globals.JSON))
		return 1
	}

	hits := a.indexer.Search(query, rank.Mode(*mode), *topK)

	if globals.JSON {
		type row struct {
			Label   string  `json:"label"`
			Score   float64 `json:"score"`
			Source  string  `json:"source"`
			Section string  `json:"section"`
			Content string  `json:"content"`
		}
		rows := make([]row, 0, len(hits))
		for _, h := range hits {
			rows = append(rows, row{
				Label:   labelString(h.Label),
				Score:   h.Combined,
				Source:  h.Chunk.Source,
				Section: h.Chunk.Section,
				Content: truncateText(h.Chunk.Content, 400),
			})
		}
		data, merr := json.MarshalIndent(rows, "", "  ")
		if merr != nil {
			fmt.Fprint(os.Stderr, errors.FatalError(merr, true))
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	if len(hits) == 0 {
		fmt.Println("No results")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tLABEL\tSOURCE\tSECTION")
	fmt.Fprintln(w, "-----\t-----\t------\t-------")
	for _, h := range hits {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", h.Combined, labelString(h.Label), h.Chunk.Source, h.Chunk.Section)
	}
	_ = w.Flush()
	fmt.Printf("\n(%d results)\n", len(hits))
	return 0
}
