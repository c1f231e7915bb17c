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

package collectors

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

const shellHistoryLimit = 200

// SystemCollectors runs every system-scoped collector once per reindex
// (spec §4.3, §4.7 step 4) and returns the combined chunk set.
func SystemCollectors(ctx context.Context, run Runner, homeDir string) []chunk.Chunk {
	var out []chunk.Chunk
	out = append(out, ShellHistory(homeDir)...)
	out = append(out, Containers(ctx, run)...)
	out = append(out, ProcessManagerListing(ctx, run)...)
	out = append(out, VhostDirectives(defaultVhostDirs)...)
	out = append(out, CronJobs(ctx, run)...)
	return out
}

// ShellHistory reads the most recent shell history file found in homeDir
// (bash then zsh), keeps the most recent 200 lines, and dedups them while
// preserving order (spec §4.3).
func ShellHistory(homeDir string) []chunk.Chunk {
	for _, name := range []string{".bash_history", ".zsh_history"} {
		data, err := os.ReadFile(filepath.Join(homeDir, name))
		if err != nil {
			continue
		}
		lines := nonEmptyLines(string(data))
		if len(lines) > shellHistoryLimit {
			lines = lines[len(lines)-shellHistoryLimit:]
		}
		deduped := dedupPreserveOrder(lines)
		return []chunk.Chunk{{
			Source:    "shell-history",
			Section:   name,
			Content:   Redact(strings.Join(deduped, "\n")),
			StartLine: 1,
			EndLine:   len(deduped),
			IndexedAt: time.Now().UTC(),
		}}
	}
	return nil
}

func dedupPreserveOrder(lines []string) []string {
	seen := make(map[string]bool, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

// Containers snapshots running containers and locally available images
// via docker (spec §4.3).
func Containers(ctx context.Context, run Runner) []chunk.Chunk {
	ps := strings.TrimSpace(run.Run(ctx, "", "docker", "ps", "--format", "{{.ID}}\t{{.Image}}\t{{.Status}}\t{{.Names}}"))
	images := strings.TrimSpace(run.Run(ctx, "", "docker", "images", "--format", "{{.Repository}}\t{{.Tag}}\t{{.Size}}"))
	if ps == "" && images == "" {
		return nil
	}
	now := time.Now().UTC()
	var out []chunk.Chunk
	if ps != "" {
		out = append(out, chunk.Chunk{Source: "containers", Section: "running", Content: ps, StartLine: 1, EndLine: 1, IndexedAt: now})
	}
	if images != "" {
		out = append(out, chunk.Chunk{Source: "containers", Section: "images", Content: images, StartLine: 1, EndLine: 1, IndexedAt: now})
	}
	return out
}

// ProcessManagerListing captures the running process list from pm2, the
// Node.js process manager most often found on the hosts this runs
// against, as JSON (spec §4.3).
func ProcessManagerListing(ctx context.Context, run Runner) []chunk.Chunk {
	out := strings.TrimSpace(run.Run(ctx, "", "pm2", "jlist"))
	if out == "" {
		return nil
	}
	return []chunk.Chunk{{
		Source:    "process-manager",
		Section:   "pm2-jlist",
		Content:   out,
		StartLine: 1,
		EndLine:   1,
		IndexedAt: time.Now().UTC(),
	}}
}

// defaultVhostDirs lists the usual locations of web-server virtual-host
// configuration on a Linux host.
var defaultVhostDirs = []string{
	"/etc/nginx/sites-enabled",
	"/etc/nginx/conf.d",
	"/etc/apache2/sites-enabled",
}

var vhostDirectiveRe = regexp.MustCompile(`^\s*(server_name|listen|root|proxy_pass)\s+(.+?);?\s*$`)

// VhostDirectives extracts server_name/listen/root/proxy_pass directives
// from every config file under dirs (spec §4.3).
func VhostDirectives(dirs []string) []chunk.Chunk {
	var out []chunk.Chunk
	now := time.Now().UTC()
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(dir, e.Name())
			f, err := os.Open(path)
			if err != nil {
				continue
			}
			var directives []string
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				if m := vhostDirectiveRe.FindStringSubmatch(scanner.Text()); m != nil {
					directives = append(directives, m[1]+" "+m[2])
				}
			}
			f.Close()
			if len(directives) == 0 {
				continue
			}
			out = append(out, chunk.Chunk{
				Source:    "vhost:" + path,
				Section:   "directives",
				Content:   strings.Join(directives, "\n"),
				StartLine: 1,
				EndLine:   len(directives),
				IndexedAt: now,
			})
		}
	}
	return out
}

// CronJobs returns the non-comment, non-blank entries of the current
// user's crontab (spec §4.3).
func CronJobs(ctx context.Context, run Runner) []chunk.Chunk {
	out := run.Run(ctx, "", "crontab", "-l")
	var kept []string
	for _, l := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		kept = append(kept, l)
	}
	if len(kept) == 0 {
		return nil
	}
	return []chunk.Chunk{{
		Source:    "cron",
		Section:   "jobs",
		Content:   strings.Join(kept, "\n"),
		StartLine: 1,
		EndLine:   len(kept),
		IndexedAt: time.Now().UTC(),
	}}
}
