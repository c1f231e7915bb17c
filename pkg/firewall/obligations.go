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

package firewall

import "fmt"

// evaluateObligationsLocked computes all four obligations (spec §4.10).
// Caller must hold fw.mu.
func (fw *Firewall) evaluateObligationsLocked() []Obligation {
	return []Obligation{
		fw.learningsObligationLocked(),
		fw.sessionObligationLocked(),
		fw.gitObligationLocked(),
		fw.docsObligationLocked(),
	}
}

func (fw *Firewall) learningsObligationLocked() Obligation {
	calls := fw.state.ToolCalls
	if calls < 5 {
		return Obligation{Name: "learnings", Status: StatusOK, Detail: "warmup"}
	}
	expected := calls / 5
	if expected < 1 {
		expected = 1
	}
	saved := fw.state.LearningsSaved
	switch {
	case saved == 0:
		return Obligation{Name: "learnings", Status: StatusFail, Detail: fmt.Sprintf("0/%d saved", expected)}
	case saved < expected:
		return Obligation{Name: "learnings", Status: StatusWarn, Detail: fmt.Sprintf("%d/%d saved", saved, expected)}
	default:
		return Obligation{Name: "learnings", Status: StatusOK, Detail: fmt.Sprintf("%d/%d saved", saved, expected)}
	}
}

func (fw *Firewall) sessionObligationLocked() Obligation {
	rounds := fw.state.RoundsSinceSessionSave
	switch {
	case rounds >= 3:
		return Obligation{Name: "session", Status: StatusFail, Detail: fmt.Sprintf("%d rounds without save", rounds)}
	case rounds == 2:
		return Obligation{Name: "session", Status: StatusWarn, Detail: fmt.Sprintf("%d rounds without save", rounds)}
	default:
		return Obligation{Name: "session", Status: StatusOK, Detail: "saved recently"}
	}
}

func (fw *Firewall) gitObligationLocked() Obligation {
	if fw.gitDirtyFunc == nil {
		return Obligation{Name: "git", Status: StatusOK, Detail: "unavailable"}
	}
	count, err := fw.cachedGitCountLocked()
	if err != nil {
		return Obligation{Name: "git", Status: StatusOK, Detail: "unavailable"}
	}
	switch {
	case count == 0:
		return Obligation{Name: "git", Status: StatusOK, Detail: "clean"}
	case count > 5:
		return Obligation{Name: "git", Status: StatusFail, Detail: fmt.Sprintf("%d uncommitted files", count)}
	default:
		return Obligation{Name: "git", Status: StatusWarn, Detail: fmt.Sprintf("%d uncommitted files", count)}
	}
}

func (fw *Firewall) docsObligationLocked() Obligation {
	if fw.docsFreshFunc == nil {
		return Obligation{Name: "docs", Status: StatusOK, Detail: "unavailable"}
	}
	count, err := fw.cachedDocsCountLocked()
	if err != nil {
		return Obligation{Name: "docs", Status: StatusOK, Detail: "unavailable"}
	}
	switch {
	case count <= 1:
		return Obligation{Name: "docs", Status: StatusOK, Detail: fmt.Sprintf("%d commits since docs update", count)}
	case count <= 3:
		return Obligation{Name: "docs", Status: StatusWarn, Detail: fmt.Sprintf("%d commits since docs update", count)}
	default:
		return Obligation{Name: "docs", Status: StatusFail, Detail: fmt.Sprintf("%d commits since docs update", count)}
	}
}

func (fw *Firewall) cachedGitCountLocked() (int, error) {
	now := fw.clock()
	if fw.gitCache.hasResult && now.Sub(fw.gitCache.computed) < gitCacheTTL {
		return fw.gitCache.value, fw.gitCache.err
	}
	v, err := fw.gitDirtyFunc()
	fw.gitCache = cachedCount{value: v, err: err, computed: now, hasResult: true}
	return v, err
}

func (fw *Firewall) cachedDocsCountLocked() (int, error) {
	now := fw.clock()
	if fw.docsCache.hasResult && now.Sub(fw.docsCache.computed) < docsCacheTTL {
		return fw.docsCache.value, fw.docsCache.err
	}
	v, err := fw.docsFreshFunc()
	fw.docsCache = cachedCount{value: v, err: err, computed: now, hasResult: true}
	return v, err
}
