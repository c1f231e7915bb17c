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

// Package collectors gathers read-only operational snapshots (git log,
// manifests, env files, shell history, running containers, and the
// like) into chunks. Every collector obeys the same contract: never
// error, never panic, return an empty slice on any failure (spec §4.3).
package collectors

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// execTimeout bounds every collector subprocess invocation (spec §4.3).
const execTimeout = 10 * time.Second

// Runner executes a shell command in dir (empty means the current
// directory) and returns captured stdout, or an empty string on any
// failure (missing binary, non-zero exit, timeout). Tests substitute a
// fake Runner; production code uses Exec.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) string
}

// Exec is the production Runner, grounded on the teacher's GitExecutor.Run
// subprocess wrapper (pkg/tools/git.go), generalized from git-only to any
// command and given a hard wall-clock timeout.
type Exec struct{}

func (Exec) Run(ctx context.Context, dir, name string, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return ""
	}
	return out.String()
}

// secretKeyRe matches the key half of a KEY=value env-style line whose key
// looks like it holds a secret (spec §4.3).
var secretKeyRe = regexp.MustCompile(`(?i)^([ \t]*(?:export[ \t]+)?[A-Za-z0-9_]*(?:PASSWORD|SECRET|KEY|TOKEN|CREDENTIAL|AUTH|PRIVATE|API_KEY|DB_PASSWORD|MAIL_PASSWORD|JWT_SECRET|APP_KEY|ENCRYPT)[A-Za-z0-9_]*[ \t]*=[ \t]*)(.*)$`)

// Redact replaces the value half of any KEY=value line whose key matches
// the secret-key pattern with "[REDACTED]", line by line (spec §4.3).
func Redact(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if m := secretKeyRe.FindStringSubmatch(line); m != nil {
			lines[i] = m[1] + "[REDACTED]"
		}
	}
	return strings.Join(lines, "\n")
}
