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
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/pkg/adapters"
	"github.com/kraklabs/ctxwarden/pkg/collectors"
	"github.com/kraklabs/ctxwarden/pkg/config"
	"github.com/kraklabs/ctxwarden/pkg/ctxindex"
	"github.com/kraklabs/ctxwarden/pkg/firewall"
	"github.com/kraklabs/ctxwarden/pkg/learning"
	"github.com/kraklabs/ctxwarden/pkg/rank"
	"github.com/kraklabs/ctxwarden/pkg/session"
)

// app bundles every long-lived collaborator a subcommand needs, built
// once per process by newApp.
type app struct {
	root          string
	cfg           *config.Config
	learningStore *learning.Store
	sessionStore  *session.Store
	indexer       *ctxindex.Indexer
	fw            *firewall.Firewall
}

// newApp resolves the data root, loads configuration and wires every
// collaborator package into one Indexer and Firewall, mirroring the
// teacher CLI's single construction path shared by every subcommand.
func newApp() (*app, error) {
	root, err := dataRoot()
	if err != nil {
		return nil, err
	}
	if err := ensureDataRoot(root); err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	learningStore, err := learning.Open(learningsPath(root), time.Now)
	if err != nil {
		return nil, errors.New(
			"Cannot open learnings store",
			"Failed to read or initialize "+learningsPath(root),
			"Check the file is valid JSON, or remove it to start fresh",
			err,
		)
	}

	sessionStore := session.NewStore(sessionsDir(root))

	embedCache := rank.NewCache(embedCachePath(root), rank.NewOllamaEmbedder())

	registry := adapters.DefaultRegistry()
	adapterList := adapters.Resolve(cfg.Adapters, registry)

	indexer := ctxindex.New(cfg, learningStore, embedCache, adapterList, collectors.Exec{}, root)

	fw := firewall.New(firewall.Options{
		StatsPath: statsPath(root),
		Pid:       os.Getpid(),
		LearningFunc: func(query string) []firewall.LearningHit {
			hits := learningStore.Search(query)
			out := make([]firewall.LearningHit, 0, len(hits))
			for _, h := range hits {
				out = append(out, firewall.LearningHit{Category: h.Category, Rule: h.Rule, Context: h.Context})
			}
			return out
		},
		GitDirtyFunc:  gitDirtyCount,
		DocsFreshFunc: docsFreshCount,
	})

	return &app{
		root:          root,
		cfg:           cfg,
		learningStore: learningStore,
		sessionStore:  sessionStore,
		indexer:       indexer,
		fw:            fw,
	}, nil
}

// gitDirtyCount backs the compliance firewall's git obligation: the
// number of uncommitted files in the current working tree. Other
// workspace projects are not counted. Outside a git repository
// collectors.Exec.Run swallows the command failure and returns an empty
// string, so this reports 0 rather than an error.
func gitDirtyCount() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := collectors.Exec{}.Run(ctx, ".", "git", "status", "--porcelain")
	out = strings.TrimSpace(out)
	if out == "" {
		return 0, nil
	}
	return len(strings.Split(out, "\n")), nil
}

// docsFreshCount backs the docs obligation: the number of commits made
// since the last commit that touched .github/copilot-instructions.md
// (falling back to CLAUDE.md, then AGENTS.md, when git has no history
// for it) — a proxy for "code moved on without the agent-facing docs."
// Only the repository in the current working directory is counted;
// other workspace projects are not.
func docsFreshCount() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, doc := range []string{".github/copilot-instructions.md", "CLAUDE.md", "AGENTS.md"} {
		sinceDoc := strings.TrimSpace(collectors.Exec{}.Run(ctx, ".", "git", "log", "-1", "--format=%H", "--", doc))
		if sinceDoc == "" {
			continue
		}
		headCount := strings.TrimSpace(collectors.Exec{}.Run(ctx, ".", "git", "rev-list", "--count", sinceDoc+"..HEAD"))
		total, err := strconv.Atoi(headCount)
		if err != nil {
			continue
		}
		return total, nil
	}
	return 0, nil
}
