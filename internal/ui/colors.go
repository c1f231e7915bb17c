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

// Package ui holds the terminal output helpers shared by every ctxwarden
// CLI subcommand: color vars, header/label formatting, and TTY detection.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Color handles used directly by CLI commands for ad-hoc emphasis.
var (
	Green  = color.New(color.FgGreen)
	Yellow = color.New(color.FgYellow)
	Red    = color.New(color.FgRed)
	Cyan   = color.New(color.FgCyan)
	Dim    = color.New(color.Faint)
	Bold   = color.New(color.Bold)
)

// InitColors disables color output when the caller passed --no-color or
// stdout isn't a terminal (piped output, CI logs).
func InitColors(noColor bool) {
	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}
}

// Header prints a bold top-level section title.
func Header(title string) {
	_, _ = Bold.Println(title)
}

// SubHeader prints a dim sub-section title, without indentation.
func SubHeader(title string) {
	_, _ = Dim.Println(title)
}

// Label formats a field name for aligned "Label: value" output.
func Label(s string) string {
	return Bold.Sprint(s)
}

// DimText wraps s in the faint color for secondary/contextual text.
func DimText(s string) string {
	return Dim.Sprint(s)
}

// CountText formats an integer count in cyan, for emphasis in summaries.
func CountText(n int) string {
	return Cyan.Sprintf("%d", n)
}

// Info prints an informational line prefixed with a dim arrow.
func Info(msg string) {
	fmt.Printf("%s %s\n", Dim.Sprint("->"), msg)
}

// Infof is Info with fmt.Sprintf-style formatting.
func Infof(format string, args ...interface{}) {
	Info(fmt.Sprintf(format, args...))
}

// Success prints a line prefixed with a green checkmark.
func Success(msg string) {
	_, _ = Green.Printf("✓ %s\n", msg)
}

// Successf is Success with fmt.Sprintf-style formatting.
func Successf(format string, args ...interface{}) {
	Success(fmt.Sprintf(format, args...))
}

// Warning prints a line prefixed with a yellow warning glyph, to stderr.
func Warning(msg string) {
	_, _ = Yellow.Fprintf(os.Stderr, "! %s\n", msg)
}

// Warningf is Warning with fmt.Sprintf-style formatting.
func Warningf(format string, args ...interface{}) {
	Warning(fmt.Sprintf(format, args...))
}

// Error prints a line prefixed with a red error glyph, to stderr.
func Error(msg string) {
	_, _ = Red.Fprintf(os.Stderr, "x %s\n", msg)
}

// Errorf is Error with fmt.Sprintf-style formatting.
func Errorf(format string, args ...interface{}) {
	Error(fmt.Sprintf(format, args...))
}
