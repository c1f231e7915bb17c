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

// Package rank implements the three stages of ctxwarden's retrieval
// pipeline: the BM25 lexical ranker, the dense embedding cache and
// cosine search, and the hybrid fuser that combines them with temporal
// decay (spec §4.4–§4.6).
package rank

import (
	"math"
	"strings"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

const (
	bm25K1 = 1.5
	bm25B  = 0.75
	// multiTermBonusFactor scales the multi-distinct-term bonus (spec §4.4).
	multiTermBonusFactor = 0.15
)

// tokenRe-free tokenizer: lowercase, replace non-[a-z0-9_-./] with space,
// split, drop tokens of length <=1 (spec §4.4).
func Tokenize(s string) []string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.' || r == '/' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// ScoredChunk pairs a chunk with a ranker-assigned score.
type ScoredChunk struct {
	Chunk chunk.Chunk
	Score float64
}

// BM25Index indexes a chunk corpus for repeated BM25 queries. Document
// lengths and avgDl are computed once; IDF is computed per query.
type BM25Index struct {
	chunks []chunk.Chunk
	docs   []string // lowercased "content + \" \" + section" per chunk, for substring df/tf
	dls    []int    // token count per chunk
	avgDl  float64
}

// NewBM25Index builds an index over chunks. Corpora are expected to be
// small (thousands, not millions); IDF is recomputed per query rather
// than incrementally maintained (spec §4.4 rationale).
func NewBM25Index(chunks []chunk.Chunk) *BM25Index {
	idx := &BM25Index{chunks: chunks}
	idx.docs = make([]string, len(chunks))
	idx.dls = make([]int, len(chunks))

	total := 0
	for i, c := range chunks {
		doc := strings.ToLower(c.Content + " " + c.Section)
		idx.docs[i] = doc
		n := len(Tokenize(doc))
		idx.dls[i] = n
		total += n
	}
	if len(chunks) > 0 {
		idx.avgDl = float64(total) / float64(len(chunks))
	}
	if idx.avgDl == 0 {
		idx.avgDl = 1
	}
	return idx
}

// Search scores every chunk against query's tokens and returns the
// non-zero-scored results, unsorted (callers sort / truncate to top-K
// as needed) (spec §4.4).
func (idx *BM25Index) Search(query string) []ScoredChunk {
	terms := uniqueTerms(Tokenize(query))
	if len(terms) == 0 || len(idx.chunks) == 0 {
		return nil
	}

	n := float64(len(idx.chunks))
	idf := make(map[string]float64, len(terms))
	for _, t := range terms {
		df := 0
		for _, doc := range idx.docs {
			if strings.Contains(doc, t) {
				df++
			}
		}
		idf[t] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}

	var results []ScoredChunk
	for i, doc := range idx.docs {
		dl := float64(idx.dls[i])
		docTokens := Tokenize(doc)

		total := 0.0
		distinct := 0
		for _, t := range terms {
			tf := substringTermFreq(docTokens, t)
			if tf == 0 {
				continue
			}
			distinct++
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*dl/idx.avgDl))
			total += idf[t] * norm
		}
		if total <= 0 {
			continue
		}
		total *= 1 + multiTermBonusFactor*float64(distinct)
		results = append(results, ScoredChunk{Chunk: idx.chunks[i], Score: total})
	}
	return results
}

// substringTermFreq counts document tokens equal to t or containing t as
// a substring (spec §4.4: "substring-tolerant tf").
func substringTermFreq(docTokens []string, t string) float64 {
	count := 0.0
	for _, dt := range docTokens {
		if strings.Contains(dt, t) {
			count++
		}
	}
	return count
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	var out []string
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
