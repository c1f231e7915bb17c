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

import (
	"fmt"
	"strings"
	"time"
)

func glyph(s Status) string {
	switch s {
	case StatusOK:
		return "✓"
	case StatusWarn:
		return "!"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// renderStatusBlock formats the fixed-layout compliance block shown at
// footer/header/degraded levels (spec §4.10): uptime, tool call count,
// compliance percentage, one line per obligation, and, once any earlier
// response in the session has been truncated, a line counting those
// truncations.
func renderStatusBlock(state statsFile, obligations []Obligation, score int, now time.Time) string {
	uptimeMinutes := int(now.Sub(state.StartedAt) / time.Minute)
	compliance := 100 - score
	if compliance < 0 {
		compliance = 0
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[compliance %d%% | uptime %dm | tool calls %d]\n", compliance, uptimeMinutes, state.ToolCalls))
	for _, o := range obligations {
		b.WriteString(fmt.Sprintf("%s %s: %s\n", glyph(o.Status), o.Name, o.Detail))
	}
	if state.Truncations > 0 {
		b.WriteString(fmt.Sprintf("(%d response(s) truncated this session; run save_session and save_learning to clear)\n", state.Truncations))
	}
	return strings.TrimRight(b.String(), "\n")
}
