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

// Package ctxindex orchestrates the chunk model, markdown/code ingestion,
// operational collectors, the learning store and plugin adapters into a
// single ranked chunk set, and keeps that set current via a debounced
// file watch (spec §4.7).
package ctxindex

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kraklabs/ctxwarden/pkg/adapters"
	"github.com/kraklabs/ctxwarden/pkg/chunk"
	"github.com/kraklabs/ctxwarden/pkg/codechunk"
	"github.com/kraklabs/ctxwarden/pkg/collectors"
	"github.com/kraklabs/ctxwarden/pkg/config"
	"github.com/kraklabs/ctxwarden/pkg/learning"
	"github.com/kraklabs/ctxwarden/pkg/mdchunk"
	"github.com/kraklabs/ctxwarden/pkg/rank"
)

// watchDebounce is the file-watch coalescing window (spec §4.7).
const watchDebounce = 500 * time.Millisecond

// State is the immutable output of one reindex cycle (spec §3: IndexState).
type State struct {
	Chunks      []chunk.Chunk
	Vectors     map[string][]float32
	Sources     []chunk.KnowledgeSource
	Fingerprint string
	ReindexedAt time.Time
}

// Indexer owns the chunk corpus and its rankers, and drives reindex on
// demand or on file-watch trigger.
type Indexer struct {
	cfg           *config.Config
	learningStore *learning.Store
	embedCache    *rank.Cache
	adapters      []adapters.Adapter
	runner        collectors.Runner
	homeDir       string

	mu         sync.RWMutex
	state      State
	bm25       *rank.BM25Index
	reindexing bool

	watchMu sync.Mutex
}

// New builds an Indexer. embedCache and learningStore may be nil: a nil
// embedCache disables dense search entirely (BM25-only), a nil
// learningStore skips learning projection and auto-import.
func New(cfg *config.Config, learningStore *learning.Store, embedCache *rank.Cache, adapterList []adapters.Adapter, runner collectors.Runner, homeDir string) *Indexer {
	if runner == nil {
		runner = collectors.Exec{}
	}
	return &Indexer{
		cfg:           cfg,
		learningStore: learningStore,
		embedCache:    embedCache,
		adapters:      adapterList,
		runner:        runner,
		homeDir:       homeDir,
	}
}

// State returns the most recently built index state. Safe for concurrent
// use with Reindex.
func (ix *Indexer) State() State {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.state
}

// tryStartReindex flips the in-progress flag, returning false (a no-op for
// the caller) if a reindex is already running (spec §5: "either queue one
// pending reindex ... or skip").
func (ix *Indexer) tryStartReindex() bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.reindexing {
		return false
	}
	ix.reindexing = true
	return true
}

func (ix *Indexer) finishReindex() {
	ix.mu.Lock()
	ix.reindexing = false
	ix.mu.Unlock()
}

// Reindex runs exactly one full reindex cycle (spec §4.7, steps 1-8). It
// is idempotent with respect to concurrent callers: if a reindex is
// already running, this call is a no-op and returns nil immediately.
func (ix *Indexer) Reindex(ctx context.Context) error {
	if !ix.tryStartReindex() {
		return nil
	}
	defer ix.finishReindex()

	sources := ix.cfg.Sources()
	projects := ix.cfg.WorkspaceProjects()

	var all []chunk.Chunk
	seen := map[string]bool{}

	// Step 2: markdown sources, declared/discovery order, global dedup.
	for _, src := range sources {
		if src.Type != chunk.SourceMarkdown {
			continue
		}
		info, err := os.Stat(src.Path)
		if err != nil {
			continue
		}
		mchunks, err := mdchunk.Ingest(src.Name, src.Path, info.ModTime())
		if err != nil {
			continue
		}
		all = append(all, mdchunk.DedupAcrossCorpus(mchunks, seen)...)
	}

	// Step 3a: per-project operational collectors, project-enumeration order.
	if ix.cfg.CollectOpsEnabled() {
		for _, proj := range projects {
			all = append(all, collectors.ProjectCollectors(ctx, ix.runner, proj)...)
		}
	}

	// Step 4: system-scoped collectors, once.
	if ix.cfg.CollectSystemOpsEnabled() {
		all = append(all, collectors.SystemCollectors(ctx, ix.runner, ix.homeDir)...)
	}

	// Step 3b: code directories, project-enumeration order (ordering
	// guarantee places code after system chunks; spec §5).
	for _, proj := range projects {
		for _, dir := range ix.cfg.CodeDirsFor(proj) {
			codeChunks, err := codechunk.ScanDirectory(proj.Name, dir)
			if err != nil {
				continue
			}
			all = append(all, codeChunks...)
		}
	}

	// Step 5: auto-import learnings from markdown sources.
	if ix.learningStore != nil {
		for _, src := range sources {
			if src.Type != chunk.SourceMarkdown {
				continue
			}
			_, _ = ix.learningStore.ImportFromFile(src.Path, "general", "")
		}
	}

	// Step 6: project the learning store into chunks scoped by project.
	if ix.learningStore != nil {
		scope := make(map[string]bool, len(projects))
		for _, p := range projects {
			scope[strings.ToLower(p.Name)] = true
		}
		all = append(all, learningsToChunks(ix.learningStore.List("", scope))...)
	}

	// Step 7: plugin adapters, each isolated from the others' failures.
	for _, a := range ix.adapters {
		achunks, err := a.Collect(ctx, ix.cfg)
		if err != nil {
			continue
		}
		for _, c := range achunks {
			c.Source = a.Name() + ":" + c.Source
			all = append(all, c)
		}
	}

	fp := rank.Fingerprint(all)

	var vectors map[string][]float32
	if ix.embedCache != nil && !ix.embedCache.Disabled() {
		vectors = ix.embedCache.Load(all)
	}

	ix.mu.Lock()
	ix.state = State{
		Chunks:      all,
		Vectors:     vectors,
		Sources:     sources,
		Fingerprint: fp,
		ReindexedAt: time.Now(),
	}
	ix.bm25 = rank.NewBM25Index(all)
	ix.mu.Unlock()
	return nil
}

// SearchResult is one ranked hit returned by Search.
type SearchResult = rank.FusedResult

// Search runs the hybrid pipeline (spec §4.6) against the current index
// state: BM25 unless the mode is semantic, dense unless the mode is
// keyword and only if the embed cache is live.
func (ix *Indexer) Search(query string, mode rank.Mode, k int) []SearchResult {
	ix.mu.RLock()
	bm25 := ix.bm25
	st := ix.state
	ix.mu.RUnlock()

	var kwHits, semHits []rank.ScoredChunk
	if bm25 != nil && mode != rank.ModeSemantic {
		kwHits = bm25.Search(query)
	}
	if mode != rank.ModeKeyword && ix.embedCache != nil && !ix.embedCache.Disabled() {
		if qv, err := ix.embedCache.EmbedQuery(query); err == nil {
			semHits = rank.DenseSearch(st.Chunks, st.Vectors, qv)
		}
	}
	const fanout = 2
	kwHits = topN(kwHits, fanout*max(k, 1))
	semHits = topN(semHits, fanout*max(k, 1))
	return rank.Fuse(mode, kwHits, semHits, k, nil)
}

func topN(hits []rank.ScoredChunk, n int) []rank.ScoredChunk {
	sorted := make([]rank.ScoredChunk, len(hits))
	copy(sorted, hits)
	sortScoredDesc(sorted)
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func sortScoredDesc(hits []rank.ScoredChunk) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func learningsToChunks(ls []learning.Learning) []chunk.Chunk {
	out := make([]chunk.Chunk, 0, len(ls))
	for _, l := range ls {
		content := l.Rule
		if l.Context != "" {
			content += "\n" + l.Context
		}
		out = append(out, chunk.Chunk{
			Source:    "learnings",
			Section:   l.Category + " > " + l.ID,
			Content:   content,
			StartLine: 1,
			EndLine:   1,
			IndexedAt: l.UpdatedAt,
		})
	}
	return out
}
