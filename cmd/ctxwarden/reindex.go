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
	"time"

	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/internal/metrics"
	"github.com/kraklabs/ctxwarden/internal/ui"
	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

// runReindex triggers one full reindex cycle (spec §4.7) and reports the
// resulting chunk count.
func runReindex(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	timeout := fs.Duration("timeout", 2*time.Minute, "Maximum time to wait for reindex to complete")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ctxwarden reindex [options]

Rebuild the chunk corpus: markdown/code sources, operational
collectors, plugin adapters and saved learnings, then re-embed and
re-rank. Safe to run concurrently; a reindex already in flight makes
this a no-op.

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

	var bar *progressbar.ProgressBar
	if !globals.Quiet {
		bar = progressbar.Default(-1, "Reindexing")
		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					_ = bar.Add(1)
				}
			}
		}()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	reindexErr := a.indexer.Reindex(ctx)
	elapsed := time.Since(start)
	metrics.ReindexDuration.Observe(elapsed.Seconds())

	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	if reindexErr != nil {
		fmt.Fprint(os.Stderr, errors.FatalError(reindexErr, globals.JSON))
		return 1
	}

	st := a.indexer.State()
	sourceTypes := make(map[string]chunk.SourceType, len(st.Sources))
	for _, src := range st.Sources {
		sourceTypes[src.Name] = src.Type
	}
	counts := make(map[chunk.SourceType]int)
	for _, c := range st.Chunks {
		counts[sourceTypes[c.Source]]++
	}
	metrics.ChunksIndexed.Reset()
	for sourceType, n := range counts {
		metrics.ChunksIndexed.WithLabelValues(string(sourceType)).Set(float64(n))
	}

	if globals.JSON {
		data, _ := json.MarshalIndent(struct {
			Chunks      int    `json:"chunks"`
			Sources     int    `json:"sources"`
			Fingerprint string `json:"fingerprint"`
			Duration    string `json:"duration"`
		}{
			Chunks:      len(st.Chunks),
			Sources:     len(st.Sources),
			Fingerprint: st.Fingerprint,
			Duration:    elapsed.String(),
		}, "", "  ")
		fmt.Println(string(data))
		return 0
	}

	ui.Successf("Reindexed %d chunks from %d sources in %s", len(st.Chunks), len(st.Sources), elapsed.Round(time.Millisecond))
	return 0
}
