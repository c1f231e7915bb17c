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

// Package errors defines the UserError carried by CLI-fatal paths: a
// three-part message (what failed, why, how to fix it) with an optional
// wrapped cause. It is never returned across the MCP transport — tool
// handlers format their own isError responses instead.
package errors

import (
	"encoding/json"
	"fmt"
)

// UserError is an error meant to be printed directly to a human, not
// logged as a stack trace.
type UserError struct {
	Title      string
	Detail     string
	Suggestion string
	Cause      error
}

// New constructs a UserError.
func New(title, detail, suggestion string, cause error) *UserError {
	return &UserError{Title: title, Detail: detail, Suggestion: suggestion, Cause: cause}
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Title, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Title, e.Detail)
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// Format renders the error for CLI output: either a single JSON object
// (jsonMode, for --json invocations) or a human-readable three-line
// block.
func (e *UserError) Format(jsonMode bool) string {
	if jsonMode {
		payload := struct {
			Error      string `json:"error"`
			Detail     string `json:"detail"`
			Suggestion string `json:"suggestion,omitempty"`
		}{Error: e.Title, Detail: e.Detail, Suggestion: e.Suggestion}
		data, err := json.Marshal(payload)
		if err != nil {
			return e.Error()
		}
		return string(data)
	}

	out := "Error: " + e.Title + "\n"
	if e.Detail != "" {
		out += e.Detail + "\n"
	}
	if e.Suggestion != "" {
		out += "Suggestion: " + e.Suggestion + "\n"
	}
	return out
}

// FatalError formats err for terminal output, whether or not it is a
// UserError, and is the single function CLI commands call right before
// os.Exit(1).
func FatalError(err error, jsonMode bool) string {
	if ue, ok := err.(*UserError); ok {
		return ue.Format(jsonMode)
	}
	if jsonMode {
		data, merr := json.Marshal(struct {
			Error string `json:"error"`
		}{Error: err.Error()})
		if merr == nil {
			return string(data)
		}
	}
	return "Error: " + err.Error() + "\n"
}
