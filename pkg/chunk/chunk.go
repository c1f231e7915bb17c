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

// Package chunk defines the uniform record type shared by every ingester,
// ranker, and store in ctxwarden: the Chunk. Everything the indexer ever
// returns to a query is a Chunk or a vector-augmented Chunk.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// SourceType discriminates the two kinds of knowledge source the indexer
// understands.
type SourceType string

const (
	SourceMarkdown SourceType = "markdown"
	SourceCode     SourceType = "code"
)

// Chunk is an addressable, immutable unit of indexed text with source and
// line-range provenance. Once created during ingest, a Chunk is never
// mutated; a reindex drops the whole set and rebuilds it.
type Chunk struct {
	// Source is the human-readable label of the file or collector that
	// produced this chunk (e.g. "CLAUDE.md", "git-log", "src/app.go").
	Source string

	// Section is a heading path or other structural locator, e.g.
	// "# A > ## B" for Markdown or a function name for code.
	Section string

	// Content is the chunk's text. Never empty.
	Content string

	// StartLine and EndLine are the 1-based, inclusive line range of the
	// chunk's primary content, not counting any prepended overlap.
	StartLine int
	EndLine   int

	// Hash is the first 16 hex characters of SHA-256 over Content. Empty
	// when the chunk's source doesn't support dedup (most operational
	// collector chunks skip hashing; Markdown chunks always set it).
	Hash string

	// IndexedAt is the UTC time this chunk was produced, when known.
	IndexedAt time.Time
}

// ContentHash computes the canonical 16-hex-character content hash used
// for corpus-wide dedup (spec §3, §4.1).
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// Validate checks the Chunk invariants: non-empty content and a sane line
// range. The hash is not compared against the content.
func (c Chunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk: content must not be empty")
	}
	if c.StartLine <= 0 || c.EndLine < c.StartLine {
		return fmt.Errorf("chunk: invalid line range [%d, %d]", c.StartLine, c.EndLine)
	}
	return nil
}

// WithHash returns a copy of c with Hash set to the content hash of
// hashedContent. Callers that hash the pre-overlap content pass that text
// explicitly rather than c.Content, since c.Content may already carry a
// prepended overlap by the time WithHash is called.
func (c Chunk) WithHash(hashedContent string) Chunk {
	c.Hash = ContentHash(hashedContent)
	return c
}

// KnowledgeSource is a named file path plus a type discriminator.
type KnowledgeSource struct {
	Name string
	Path string
	Type SourceType
}

// ProjectDirectory is a (name, absolute path) pair identifying a
// workspace-unique scoping identity used by learnings and collectors.
type ProjectDirectory struct {
	Name string
	Path string
}

// EmbeddedChunk pairs a Chunk with a fixed-dimension, L2-normalized dense
// vector. Because the vector is normalized, cosine similarity between two
// EmbeddedChunks is just their dot product.
type EmbeddedChunk struct {
	Chunk  Chunk
	Vector []float32
}

// Key returns a stable identity for a chunk, used to deduplicate across
// the BM25 and dense result sets during fusion (spec §4.6).
func Key(c Chunk) string {
	return c.Source + "\x00" + c.Section + "\x00" + fmt.Sprint(c.StartLine)
}
