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

package learning

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	h2Re        = regexp.MustCompile(`^##\s+(.+?)\s*$`)
	h3Re        = regexp.MustCompile(`^###\s+(.+?)\s*$`)
	h4Re        = regexp.MustCompile(`^####\s+(.+?)\s*$`)
	bulletRe    = regexp.MustCompile(`^[-*]\s+(.+?)\s*$`)
	inlineRe    = regexp.MustCompile(`^[-*]\s+\[([^\]]+)\]\s+(.+?)(?:\s*(?:→|->)\s*(.+))?\s*$`)
	yamlFenceRe = regexp.MustCompile("^```ya?ml\\s*$")
	fenceEndRe  = regexp.MustCompile("^```\\s*$")
)

// learningMetadata is the shape of an optional YAML-fenced metadata block
// immediately under an H3 rule heading, e.g.:
//
//	### Always vendor generated protobuf code
//	```yaml
//	project: billing-service
//	tags: [build, protobuf]
//	```
type learningMetadata struct {
	Project string   `yaml:"project"`
	Tags    []string `yaml:"tags"`
}

type importedEntry struct {
	Category string `json:"category"`
	Rule     string `json:"rule"`
	Context  string `json:"context"`
	Project  string `json:"project,omitempty"`
}

// normalizeCategory maps free-form heading text onto the closed category
// enum via categoryKeywords, falling back to "general" (spec §4.8).
func normalizeCategory(heading string) string {
	h := strings.ToLower(strings.TrimSpace(heading))
	for _, c := range Categories {
		if h == c {
			return c
		}
	}
	for kw, cat := range categoryKeywords {
		if strings.Contains(h, kw) {
			return cat
		}
	}
	return "general"
}

// ImportFromFile parses path as Markdown or JSON (by extension) and
// saves every entry found through Save, which provides the dedup/update
// semantics (spec §4.8).
func (s *Store) ImportFromFile(path, defaultCategory, project string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var entries []importedEntry
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		entries, err = parseJSONLearnings(data)
	} else {
		entries = parseMarkdownLearnings(string(data), defaultCategory)
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range entries {
		if e.Rule == "" {
			continue
		}
		cat := e.Category
		if cat == "" {
			cat = defaultCategory
		}
		p := e.Project
		if p == "" {
			p = project
		}
		s.Save(cat, e.Rule, e.Context, p)
		count++
	}
	return count, nil
}

func parseJSONLearnings(data []byte) ([]importedEntry, error) {
	var entries []importedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// parseMarkdownLearnings walks the document line by line tracking the
// current H2-derived category, collecting each H3 as a rule with H4 and
// bullet/table lines beneath it as context, plus standalone inline
// `- [category] rule → context` entries anywhere in the document (spec
// §4.8).
func parseMarkdownLearnings(content, defaultCategory string) []importedEntry {
	var entries []importedEntry

	category := defaultCategory
	if category == "" {
		category = "general"
	}

	var current *importedEntry
	flush := func() {
		if current != nil {
			current.Context = strings.TrimSpace(current.Context)
			entries = append(entries, *current)
			current = nil
		}
	}

	lines := strings.Split(content, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if m := h2Re.FindStringSubmatch(line); m != nil {
			flush()
			category = normalizeCategory(m[1])
			continue
		}
		if m := h3Re.FindStringSubmatch(line); m != nil {
			flush()
			current = &importedEntry{Category: category, Rule: m[1]}
			continue
		}
		if yamlFenceRe.MatchString(line) && current != nil {
			var block []string
			j := i + 1
			for ; j < len(lines) && !fenceEndRe.MatchString(lines[j]); j++ {
				block = append(block, lines[j])
			}
			applyMetadata(current, strings.Join(block, "\n"))
			i = j
			continue
		}
		if m := inlineRe.FindStringSubmatch(line); m != nil {
			flush()
			entries = append(entries, importedEntry{
				Category: normalizeCategory(m[1]),
				Rule:     strings.TrimSpace(m[2]),
				Context:  strings.TrimSpace(m[3]),
			})
			continue
		}
		if current == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := h4Re.FindStringSubmatch(line); m != nil {
			current.Context += m[1] + "\n"
			continue
		}
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			current.Context += m[1] + "\n"
			continue
		}
		// Plain paragraph text and table rows both fall straight through
		// to context as-is.
		current.Context += trimmed + "\n"
	}
	flush()
	return entries
}

// applyMetadata parses a YAML-fenced block beneath an H3 rule heading and
// folds its fields into the entry being built. A malformed block is
// ignored rather than failing the whole import (spec §4.8 treats import
// as best-effort).
func applyMetadata(entry *importedEntry, block string) {
	var meta learningMetadata
	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return
	}
	if meta.Project != "" {
		entry.Project = meta.Project
	}
	if len(meta.Tags) > 0 {
		entry.Context += "tags: " + strings.Join(meta.Tags, ", ") + "\n"
	}
}
