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

// Package adapters defines the plugin interface through which the
// indexer's reindex cycle picks up chunks from opaque, independently
// failing sources (spec §4.7 step 7), plus the built-in symbols adapter.
package adapters

import (
	"context"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
	"github.com/kraklabs/ctxwarden/pkg/config"
)

// Adapter produces supplementary chunks from an opaque external source.
// A failing adapter must not prevent the rest of the reindex from
// completing; callers are expected to isolate errors per adapter.
type Adapter interface {
	Name() string
	Description() string
	Collect(ctx context.Context, cfg *config.Config) ([]chunk.Chunk, error)
}

// Validator is an optional extension: an adapter that can check its own
// configuration before being registered.
type Validator interface {
	Validate(cfg config.AdapterConfig) error
}

// Lifecycle is an optional extension for adapters that hold resources
// across the process lifetime (connections, file handles).
type Lifecycle interface {
	Init(cfg config.AdapterConfig) error
	Destroy() error
}

// Resolve builds the enabled adapter list from config, matching each
// AdapterConfig entry's Name against the registry and skipping unknown
// or disabled entries.
func Resolve(cfgs []config.AdapterConfig, registry map[string]Adapter) []Adapter {
	var out []Adapter
	for _, ac := range cfgs {
		if !ac.Enabled {
			continue
		}
		a, ok := registry[ac.Name]
		if !ok {
			continue
		}
		if v, ok := a.(Validator); ok {
			if err := v.Validate(ac); err != nil {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// DefaultRegistry returns the built-in adapters keyed by name.
func DefaultRegistry() map[string]Adapter {
	return map[string]Adapter{
		"symbols": NewSymbolsAdapter(),
	}
}
