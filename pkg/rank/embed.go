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

package rank

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kraklabs/ctxwarden/internal/metrics"
	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

// maxEmbedChars bounds the text handed to the embedder per call: section
// title + "\n" + content, truncated (spec §4.5).
const maxEmbedChars = 512

// embedBatchSize is how many chunks are embedded per embedder call (spec
// §4.5).
const embedBatchSize = 10

// Embedder is the external black-box embedding provider: one string in,
// one L2-normalized vector out. Implementations are expected to batch
// internally when given multiple strings (spec §4.5).
type Embedder interface {
	Embed(texts []string) ([][]float32, error)
}

// EmbedText builds the embedder input for a chunk: its section title,
// then a newline, then its content, truncated to maxEmbedChars (spec
// §4.5).
func EmbedText(c chunk.Chunk) string {
	s := c.Section + "\n" + c.Content
	if len(s) > maxEmbedChars {
		s = s[:maxEmbedChars]
	}
	return s
}

// Fingerprint computes the cache fingerprint: a hash over every chunk's
// content hash concatenated in deterministic order (by source, then
// section, then start line) (spec §4.5).
func Fingerprint(chunks []chunk.Chunk) string {
	ordered := make([]chunk.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Source != ordered[j].Source {
			return ordered[i].Source < ordered[j].Source
		}
		if ordered[i].Section != ordered[j].Section {
			return ordered[i].Section < ordered[j].Section
		}
		return ordered[i].StartLine < ordered[j].StartLine
	})

	var b strings.Builder
	for _, c := range ordered {
		b.WriteString(c.Hash)
		b.WriteByte('\x00')
	}
	return chunk.ContentHash(b.String())
}

type cacheFile struct {
	Fingerprint string               `json:"fingerprint"`
	Vectors     map[string][]float32 `json:"vectors"` // keyed by chunk.Key
}

// Cache persists embedded vectors to disk keyed by corpus fingerprint.
// It never re-embeds on a fingerprint match (spec §4.5: "Cache hit = the
// fingerprint matches the persisted header").
type Cache struct {
	path     string
	embedder Embedder

	// disabled is set permanently once the embedder fails, per the
	// fallback contract (spec §4.5: "permanently disabled for the
	// session").
	disabled bool
}

// NewCache wraps embedder with a disk-backed cache at path. A nil
// embedder starts the cache permanently disabled, degrading every
// search to BM25-only.
func NewCache(path string, embedder Embedder) *Cache {
	return &Cache{path: path, embedder: embedder, disabled: embedder == nil}
}

// Disabled reports whether the dense path is unavailable for the rest of
// this process's lifetime.
func (c *Cache) Disabled() bool {
	return c.disabled
}

// Load attempts a cache hit for chunks' fingerprint, computing and
// persisting embeddings on a miss. On any embedder failure, it disables
// the dense path permanently and returns a nil map (spec §4.5).
func (c *Cache) Load(chunks []chunk.Chunk) map[string][]float32 {
	if c.disabled {
		return nil
	}
	fp := Fingerprint(chunks)

	if cached := c.readCache(fp); cached != nil {
		metrics.EmbeddingCacheHitsTotal.Inc()
		return cached
	}
	metrics.EmbeddingCacheMissesTotal.Inc()

	vectors, err := c.embedAll(chunks)
	if err != nil {
		c.disabled = true
		return nil
	}
	c.writeCache(fp, vectors)
	return vectors
}

func (c *Cache) readCache(fp string) map[string][]float32 {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var cf cacheFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil
	}
	if cf.Fingerprint != fp {
		return nil
	}
	return cf.Vectors
}

func (c *Cache) writeCache(fp string, vectors map[string][]float32) {
	cf := cacheFile{Fingerprint: fp, Vectors: vectors}
	data, err := json.Marshal(cf)
	if err != nil {
		return
	}
	dir := filepath.Dir(c.path)
	_ = os.MkdirAll(dir, 0o750)
	tmp, err := os.CreateTemp(dir, ".embed-cache-*.tmp")
	if err != nil {
		return
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return
	}
	tmp.Close()
	os.Rename(tmpPath, c.path)
}

func (c *Cache) embedAll(chunks []chunk.Chunk) (map[string][]float32, error) {
	vectors := make(map[string][]float32, len(chunks))
	for i := 0; i < len(chunks); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]
		texts := make([]string, len(batch))
		for j, ch := range batch {
			texts[j] = EmbedText(ch)
		}
		embedded, err := c.embedder.Embed(texts)
		if err != nil {
			return nil, fmt.Errorf("rank: embed batch %d: %w", i/embedBatchSize, err)
		}
		if len(embedded) != len(batch) {
			return nil, fmt.Errorf("rank: embedder returned %d vectors for %d inputs", len(embedded), len(batch))
		}
		for j, ch := range batch {
			vectors[chunk.Key(ch)] = embedded[j]
		}
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string, or returns an error if the
// dense path is disabled.
func (c *Cache) EmbedQuery(query string) ([]float32, error) {
	if c.disabled {
		return nil, fmt.Errorf("rank: dense search disabled")
	}
	vecs, err := c.embedder.Embed([]string{query})
	if err != nil || len(vecs) != 1 {
		c.disabled = true
		return nil, fmt.Errorf("rank: embed query: %w", err)
	}
	return vecs[0], nil
}

// DenseSearch scores every (chunk, vector) pair in vectors against
// queryVec by dot product (cosine, since vectors are L2-normalized) and
// returns one result per chunk that has a vector, negative scores
// included, unsorted (spec §4.5).
func DenseSearch(chunks []chunk.Chunk, vectors map[string][]float32, queryVec []float32) []ScoredChunk {
	var out []ScoredChunk
	for _, c := range chunks {
		v, ok := vectors[chunk.Key(c)]
		if !ok {
			continue
		}
		out = append(out, ScoredChunk{Chunk: c, Score: dot(v, queryVec)})
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
