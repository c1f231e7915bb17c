package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

func fixedNow(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestTemporalDecayFreshChunkNearOne(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	decay := temporalDecay(now, now)
	assert.InDelta(t, 1.0, decay, 1e-9)
}

func TestTemporalDecayHalfLife(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	indexed := now.Add(-90 * 24 * time.Hour)
	decay := temporalDecay(indexed, now)
	assert.InDelta(t, 0.75, decay, 1e-6)
}

func TestTemporalDecayMissingTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	decay := temporalDecay(time.Time{}, now)
	assert.Equal(t, missingTimestampDecay, decay)
}

func TestFuseHybridCombinesAndSorts(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := chunk.Chunk{Source: "a", Section: "s", StartLine: 1, IndexedAt: now}
	b := chunk.Chunk{Source: "b", Section: "s", StartLine: 1, IndexedAt: now}

	kw := []ScoredChunk{{Chunk: a, Score: 10}, {Chunk: b, Score: 5}}
	sem := []ScoredChunk{{Chunk: b, Score: 0.9}, {Chunk: a, Score: 0.1}}

	results := Fuse(ModeHybrid, kw, sem, 10, fixedNow(now))
	require.Len(t, results, 2)

	// a: kw normalized 1.0, sem 0.1 -> raw = 0.4*1 + 0.6*0.1 = 0.46
	// b: kw normalized 0.5, sem 0.9 -> raw = 0.4*0.5 + 0.6*0.9 = 0.74
	assert.Equal(t, "b", results[0].Chunk.Source)
	assert.Equal(t, "a", results[1].Chunk.Source)
}

func TestFuseKeywordModeBypassesUnion(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := chunk.Chunk{Source: "a", IndexedAt: now}
	kw := []ScoredChunk{{Chunk: a, Score: 3}}

	results := Fuse(ModeKeyword, kw, nil, 10, fixedNow(now))
	require.Len(t, results, 1)
	assert.True(t, results[0].Label.Keyword)
	assert.False(t, results[0].Label.Semantic)
}

func TestFuseTruncatesToK(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var kw []ScoredChunk
	for i := 0; i < 5; i++ {
		kw = append(kw, ScoredChunk{Chunk: chunk.Chunk{Source: string(rune('a' + i)), IndexedAt: now}, Score: float64(i + 1)})
	}
	results := Fuse(ModeKeyword, kw, nil, 2, fixedNow(now))
	assert.Len(t, results, 2)
}
