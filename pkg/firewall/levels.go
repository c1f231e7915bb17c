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

// Level is the escalation level a wrapped response is rendered at.
type Level string

const (
	LevelSilent   Level = "silent"
	LevelFooter   Level = "footer"
	LevelHeader   Level = "header"
	LevelDegraded Level = "degraded"
)

// Status is an obligation's evaluated state.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Obligation is one compliance check's outcome (spec §4.10).
type Obligation struct {
	Name   string
	Status Status
	Detail string
}

// escalationScore computes score = min(100, 30*fails + 10*warns) (spec
// §4.10: "Escalation").
func escalationScore(obligations []Obligation) int {
	fails, warns := 0, 0
	for _, o := range obligations {
		switch o.Status {
		case StatusFail:
			fails++
		case StatusWarn:
			warns++
		}
	}
	score := 30*fails + 10*warns
	if score > 100 {
		score = 100
	}
	return score
}

// escalationLevel resolves the level table in top-to-bottom, first-match
// order (spec §4.10): a zero score is always silent even if the session
// obligation alone would otherwise call for escalation.
func escalationLevel(score, roundsSinceSessionSave, toolCalls int) Level {
	switch {
	case score == 0:
		return LevelSilent
	case roundsSinceSessionSave >= 4 || score >= 80:
		return LevelDegraded
	case roundsSinceSessionSave >= 3 || score >= 50:
		return LevelHeader
	case roundsSinceSessionSave >= 2 || toolCalls >= 5:
		return LevelFooter
	default:
		return LevelSilent
	}
}
