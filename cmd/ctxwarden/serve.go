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
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/internal/metrics"
)

// runServe starts a local HTTP server exposing /health, /status and
// /metrics, so the MCP server's hosting editor (or an external
// Prometheus scraper) can observe the indexer and firewall without
// going through stdio.
func runServe(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.StringP("port", "p", envOr("CTXWARDEN_SERVE_PORT", "8745"), "Port to listen on")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ctxwarden serve [options]

Start an HTTP server exposing:
  GET /health   - liveness check
  GET /status   - indexer/firewall JSON status
  GET /metrics  - Prometheus metrics

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

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		st := a.indexer.State()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Chunks      int       `json:"chunks"`
			Sources     int       `json:"sources"`
			Fingerprint string    `json:"fingerprint"`
			ReindexedAt time.Time `json:"reindexed_at"`
		}{
			Chunks:      len(st.Chunks),
			Sources:     len(st.Sources),
			Fingerprint: st.Fingerprint,
			ReindexedAt: st.ReindexedAt,
		})
	})
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              ":" + *port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("shutting down ctxwarden server")
		a.fw.Flush()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	log.Printf("ctxwarden server listening on http://0.0.0.0:%s", *port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprint(os.Stderr, errors.FatalError(err, globals.JSON))
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
