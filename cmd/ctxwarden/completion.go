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

package main

import (
	"fmt"
	"os"
)

const bashCompletion = `_ctxwarden_completions() {
  local cur prev
  COMPREPLY=()
  cur="${COMP_WORDS[COMP_CWORD]}"
  opts="init reindex search status config serve completion"
  COMPREPLY=( $(compgen -W "${opts}" -- ${cur}) )
}
complete -F _ctxwarden_completions ctxwarden
`

const zshCompletion = `#compdef ctxwarden
_arguments '1: :(init reindex search status config serve completion)'
`

const fishCompletion = `complete -c ctxwarden -f -a "init reindex search status config serve completion"
`

// runCompletion prints a shell completion script for the requested
// shell to stdout.
func runCompletion(args []string, globals GlobalFlags) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: ctxwarden completion <bash|zsh|fish>")
		return 1
	}
	switch args[0] {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell %q, expected bash, zsh, or fish\n", args[0])
		return 1
	}
	return 0
}
