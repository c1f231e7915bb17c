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
	"math"
	"sort"
	"time"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

// Mode selects which side(s) of the hybrid search run (spec §4.6:
// "Pure keyword and pure semantic modes bypass steps 2-3").
type Mode string

const (
	ModeHybrid   Mode = "hybrid"
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
)

// halfLifeDays is the temporal decay half-life H (spec §4.6).
const halfLifeDays = 90.0

// missingTimestampDecay is τ for a chunk with a zero IndexedAt (spec
// §4.6).
const missingTimestampDecay = 0.85

// Label identifies which side(s) of the fusion contributed to a result,
// surfaced to callers for UI annotation (spec §4.11: "per-result label
// (kw/sem/age)").
type Label struct {
	Keyword  bool
	Semantic bool
}

// FusedResult is one ranked, fused search hit.
type FusedResult struct {
	Chunk    chunk.Chunk
	Combined float64
	Keyword  float64 // normalized BM25 contribution
	Semantic float64 // dense contribution
	Decay    float64
	Label    Label
}

// Clock is injectable for deterministic decay tests.
type Clock func() time.Time

// Fuse combines BM25 and dense result sets per spec §4.6. kwHits and
// semHits should already be the top-2K slices from each ranker; Fuse
// itself performs normalization, union, weighting, decay, sort, and
// truncation to k.
func Fuse(mode Mode, kwHits, semHits []ScoredChunk, k int, now Clock) []FusedResult {
	if now == nil {
		now = time.Now
	}

	switch mode {
	case ModeKeyword:
		return rankSingleSide(kwHits, true, now, k)
	case ModeSemantic:
		return rankSingleSide(semHits, false, now, k)
	default:
		return rankHybrid(kwHits, semHits, now, k)
	}
}

func rankSingleSide(hits []ScoredChunk, isKeyword bool, now Clock, k int) []FusedResult {
	out := make([]FusedResult, 0, len(hits))
	for _, h := range hits {
		decay := temporalDecay(h.Chunk.IndexedAt, now())
		r := FusedResult{Chunk: h.Chunk, Combined: h.Score * decay, Decay: decay}
		if isKeyword {
			r.Keyword = h.Score
			r.Label = Label{Keyword: true}
		} else {
			r.Semantic = h.Score
			r.Label = Label{Semantic: true}
		}
		out = append(out, r)
	}
	return sortAndTruncate(out, k)
}

func rankHybrid(kwHits, semHits []ScoredChunk, now Clock, k int) []FusedResult {
	kwNorm := normalize(kwHits)

	type union struct {
		c        chunk.Chunk
		kw, sem  float64
		hasKw    bool
		hasSem   bool
	}
	byKey := make(map[string]*union)
	order := make([]string, 0, len(kwHits)+len(semHits))

	for i, h := range kwHits {
		key := chunk.Key(h.Chunk)
		u, ok := byKey[key]
		if !ok {
			u = &union{c: h.Chunk}
			byKey[key] = u
			order = append(order, key)
		}
		u.kw = kwNorm[i]
		u.hasKw = true
	}
	for _, h := range semHits {
		key := chunk.Key(h.Chunk)
		u, ok := byKey[key]
		if !ok {
			u = &union{c: h.Chunk}
			byKey[key] = u
			order = append(order, key)
		}
		u.sem = h.Score
		u.hasSem = true
	}

	out := make([]FusedResult, 0, len(order))
	for _, key := range order {
		u := byKey[key]
		raw := 0.4*u.kw + 0.6*u.sem
		decay := temporalDecay(u.c.IndexedAt, now())
		out = append(out, FusedResult{
			Chunk:    u.c,
			Keyword:  u.kw,
			Semantic: u.sem,
			Decay:    decay,
			Combined: raw * decay,
			Label:    Label{Keyword: u.hasKw, Semantic: u.hasSem},
		})
	}
	return sortAndTruncate(out, k)
}

// normalize divides every score by the top score, per spec §4.6 step 1.
// Index order is preserved so callers can zip it back against the
// original hits slice.
func normalize(hits []ScoredChunk) []float64 {
	out := make([]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	top := hits[0].Score
	for _, h := range hits {
		if h.Score > top {
			top = h.Score
		}
	}
	if top <= 0 {
		return out
	}
	for i, h := range hits {
		out[i] = h.Score / top
	}
	return out
}

// temporalDecay computes τ(chunk) = 0.5 + 0.5*exp(-age_days*ln2/H) (spec
// §4.6). A zero IndexedAt (unknown timestamp) yields the fixed fallback.
func temporalDecay(indexedAt, now time.Time) float64 {
	if indexedAt.IsZero() {
		return missingTimestampDecay
	}
	ageDays := now.Sub(indexedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return 0.5 + 0.5*math.Exp(-ageDays*math.Ln2/halfLifeDays)
}

func sortAndTruncate(results []FusedResult, k int) []FusedResult {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Combined > results[j].Combined })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}
