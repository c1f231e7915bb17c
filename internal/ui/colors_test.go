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

package ui

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestInitColorsNoColorForcesPlainOutput(t *testing.T) {
	defer func() { color.NoColor = false }()
	color.NoColor = false
	InitColors(true)
	assert.True(t, color.NoColor)
}

func TestCountTextDimTextAndLabelArePlainWithoutColor(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()
	assert.Equal(t, "3", CountText(3))
	assert.Equal(t, "note", DimText("note"))
	assert.Equal(t, "Label:", Label("Label:"))
}
