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
	"os"
	"path/filepath"

	"github.com/kraklabs/ctxwarden/internal/errors"
	"github.com/kraklabs/ctxwarden/pkg/config"
)

// dataRoot resolves the fixed persistence root (spec §6: "~/.contextengine/",
// kept literal even though the product itself is named ctxwarden).
func dataRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New(
			"Cannot determine home directory",
			"Operating system did not provide a user home directory",
			"Set HOME (or USERPROFILE on Windows) and retry",
			err,
		)
	}
	return filepath.Join(home, ".contextengine"), nil
}

func learningsPath(root string) string {
	return filepath.Join(root, "learnings.json")
}

func sessionsDir(root string) string {
	return filepath.Join(root, "sessions")
}

func statsPath(root string) string {
	return filepath.Join(root, "session-stats.json")
}

func embedCachePath(root string) string {
	return filepath.Join(root, "embed-cache.json")
}

func ensureDataRoot(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return errors.New(
			"Cannot create data directory",
			"Failed to create "+root,
			"Check permissions on your home directory",
			err,
		)
	}
	if err := os.MkdirAll(sessionsDir(root), 0o755); err != nil {
		return errors.New(
			"Cannot create sessions directory",
			"Failed to create "+sessionsDir(root),
			"Check permissions on your home directory",
			err,
		)
	}
	return nil
}

// resolvedConfigPath mirrors pkg/config's discoverPath precedence
// (CTXWARDEN_CONFIG_PATH > CWD > home, each checked for existence) but
// returns the resolved path instead of the parsed config, for display in
// the `config` subcommand.
func resolvedConfigPath() string {
	if p := os.Getenv(config.EnvConfigPath); p != "" {
		if _, statErr := os.Stat(p); statErr == nil {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, "ctxwarden.json")
		if _, statErr := os.Stat(p); statErr == nil {
			return p
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, "ctxwarden.json")
		if _, statErr := os.Stat(p); statErr == nil {
			return p
		}
	}
	return ""
}
