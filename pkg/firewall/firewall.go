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

// Package firewall implements the compliance firewall (spec §4.10): a
// stateful wrapper around every tool response that tracks rounds,
// evaluates obligations, and escalates from silent annotation up to
// response truncation when policy thresholds are crossed.
package firewall

import (
	"strings"
	"sync"
	"time"

	"github.com/kraklabs/ctxwarden/internal/metrics"
)

// injectMax bounds how many learnings are auto-injected per query hint.
const injectMax = 3

// roundGap is the wall-clock gap after which a non-exempt call starts a
// new round (spec §4.10: "Round tracking").
const roundGap = 30 * time.Second

// gitCacheTTL and docsCacheTTL bound how often the (expensive) git and
// docs-freshness obligations are recomputed (spec §4.10).
const (
	gitCacheTTL  = 60 * time.Second
	docsCacheTTL = 120 * time.Second
)

// exemptTools are the tools that are themselves compliance remedies:
// calling them updates counters but never triggers round advancement,
// injection, or escalation wrapping (spec §4.10: "Exemption list").
var exemptTools = map[string]bool{
	"save_learning":   true,
	"list_learnings":  true,
	"delete_learning": true,
	"import_learnings": true,
	"save_session":    true,
	"load_session":    true,
	"list_sessions":   true,
	"end_session":     true,
	"activate":        true,
}

// LearningHit is the minimal projection of a learning needed for
// auto-injection, decoupling the firewall from the learning store's
// concrete type.
type LearningHit struct {
	Category string
	Rule     string
	Context  string
}

// LearningSearcher looks up learnings relevant to a query hint, already
// scoped to the active workspace.
type LearningSearcher func(query string) []LearningHit

// GitDirtyCounter reports the uncommitted file count across the active
// workspace projects (spec §4.10, obligation 3).
type GitDirtyCounter func() (int, error)

// DocsFreshnessCounter reports commits made since copilot-instructions.md's
// mtime across the active workspace projects (spec §4.10, obligation 4).
type DocsFreshnessCounter func() (int, error)

// Clock is injectable for deterministic tests.
type Clock func() time.Time

// Options configures a Firewall. All function fields are optional; a nil
// searcher/counter degrades its obligation to "ok" rather than failing.
type Options struct {
	StatsPath     string
	Clock         Clock
	Pid           int
	LearningFunc  LearningSearcher
	GitDirtyFunc  GitDirtyCounter
	DocsFreshFunc DocsFreshnessCounter
}

// Firewall is the stateful compliance wrapper. Safe for concurrent use.
type Firewall struct {
	mu sync.Mutex

	clock         Clock
	learningFunc  LearningSearcher
	gitDirtyFunc  GitDirtyCounter
	docsFreshFunc DocsFreshnessCounter

	state statsFile

	gitCache  cachedCount
	docsCache cachedCount

	injectCache map[string][]LearningHit // keyed by round + normalized hint

	statsPath  string
	flushTimer *time.Timer
}

type cachedCount struct {
	value     int
	err       error
	computed  time.Time
	hasResult bool
}

// New constructs a Firewall, restoring prior round state from a stats
// file younger than 5 minutes and written by a different pid (spec
// §4.10: "this prevents editor restarts from resetting enforcement").
func New(opts Options) *Firewall {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	pid := opts.Pid

	fw := &Firewall{
		clock:         clock,
		learningFunc:  opts.LearningFunc,
		gitDirtyFunc:  opts.GitDirtyFunc,
		docsFreshFunc: opts.DocsFreshFunc,
		statsPath:     opts.StatsPath,
		injectCache:   make(map[string][]LearningHit),
	}
	fw.state = newStatsFile(clock(), pid)

	if prior, ok := readStatsFile(opts.StatsPath); ok {
		if clock().Sub(prior.UpdatedAt) < 5*time.Minute && prior.Pid != pid {
			fw.state.Round = prior.Round
			fw.state.RoundsSinceSessionSave = prior.RoundsSinceSessionSave
			fw.state.SessionSaved = prior.SessionSaved
			fw.state.SearchRecalls = prior.SearchRecalls
			fw.state.LearningsInjected = prior.LearningsInjected
		}
	}
	return fw
}

// Wrap is the firewall's entire public surface (spec §4.10): route a
// tool's raw response text through compliance tracking and, depending on
// escalation level, annotate or truncate it.
func (fw *Firewall) Wrap(toolName, responseText, queryHint string) string {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	fw.state.ToolCalls++

	if exemptTools[toolName] {
		fw.applyExemptEffect(toolName)
		fw.scheduleFlushLocked()
		return responseText
	}

	fw.advanceRoundLocked()

	out := responseText
	if queryHint != "" && fw.learningFunc != nil {
		if hits := fw.injectedLearnings(queryHint); len(hits) > 0 {
			out = renderInjection(hits) + out
			fw.state.SearchRecalls++
			fw.state.LearningsInjected += len(hits)
		}
	}

	obligations := fw.evaluateObligationsLocked()
	score := escalationScore(obligations)
	level := escalationLevel(score, fw.state.RoundsSinceSessionSave, fw.state.ToolCalls)
	metrics.FirewallLevelTotal.WithLabelValues(string(level)).Inc()

	switch level {
	case LevelFooter:
		out = out + "\n\n" + renderStatusBlock(fw.state, obligations, score, fw.clock())
		fw.state.NudgesIssued++
	case LevelHeader:
		out = renderStatusBlock(fw.state, obligations, score, fw.clock()) + "\n\n" + out
		fw.state.NudgesIssued++
	case LevelDegraded:
		block := renderStatusBlock(fw.state, obligations, score, fw.clock())
		out = block + "\n\n" + truncate(out, &fw.state.Truncations)
		fw.state.NudgesIssued++
	}

	fw.scheduleFlushLocked()
	return out
}

func (fw *Firewall) applyExemptEffect(toolName string) {
	switch toolName {
	case "save_learning":
		fw.state.LearningsSaved++
	case "save_session":
		fw.state.SessionSaved = true
		fw.state.RoundAtLastSave = fw.state.Round
		fw.state.RoundsSinceSessionSave = 0
		fw.state.SavedThisRound = true
	}
}

func (fw *Firewall) advanceRoundLocked() {
	now := fw.clock()
	if !fw.state.LastNonExemptCall.IsZero() && now.Sub(fw.state.LastNonExemptCall) > roundGap {
		fw.state.Round++
		if fw.state.SavedThisRound {
			fw.state.RoundsSinceSessionSave = 0
		} else {
			fw.state.RoundsSinceSessionSave++
		}
		fw.state.SavedThisRound = false
	}
	fw.state.LastNonExemptCall = now
}

func (fw *Firewall) injectedLearnings(queryHint string) []LearningHit {
	key := normalizeHint(queryHint)
	cacheKey := roundCacheKey(fw.state.Round, key)
	if cached, ok := fw.injectCache[cacheKey]; ok {
		return cached
	}
	hits := fw.learningFunc(queryHint)
	if len(hits) > injectMax {
		hits = hits[:injectMax]
	}
	fw.injectCache[cacheKey] = hits
	return hits
}

func normalizeHint(hint string) string {
	h := strings.ToLower(strings.TrimSpace(hint))
	if len(h) > 200 {
		h = h[:200]
	}
	return h
}

func roundCacheKey(round int, hint string) string {
	return hint + "\x00" + itoa(round)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}
	return string(b[i:])
}

func renderInjection(hits []LearningHit) string {
	var b strings.Builder
	b.WriteString("Relevant learnings:\n")
	for _, h := range hits {
		b.WriteString("- [" + h.Category + "] " + h.Rule)
		if h.Context != "" {
			b.WriteString(" — " + h.Context)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

const truncateLimit = 500

func truncate(text string, truncations *int) string {
	if len(text) <= truncateLimit {
		return text
	}
	*truncations++
	metrics.FirewallTruncationsTotal.Inc()
	return text[:truncateLimit] + "\n\n[response truncated for compliance; run save_session/save_learning to restore full output]"
}
