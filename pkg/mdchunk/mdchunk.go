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

// Package mdchunk splits Markdown sources into heading-hierarchical
// chunks with tail-context overlap, per spec §4.1.
package mdchunk

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/kraklabs/ctxwarden/pkg/chunk"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// overlapLines is the number of trailing lines of a preceding raw chunk
// carried forward as continuity context, per spec §4.1.
const overlapLines = 4

// rawChunk is a heading-bounded span before overlap is applied.
type rawChunk struct {
	section   string
	lines     []string
	startLine int // 1-based, inclusive
	endLine   int
}

// headingEntry tracks one level of the active heading stack.
type headingEntry struct {
	level int
	title string
}

// Ingest reads a UTF-8 Markdown file and returns its ordered chunks.
// Missing or unreadable files are non-fatal: Ingest returns a nil slice
// and a descriptive error that the caller is expected to log and skip
// (spec §7, "Missing input").
func Ingest(source string, path string, mtime time.Time) ([]chunk.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mdchunk: open %s: %w", path, err)
	}
	defer f.Close()

	raws, err := splitHeadings(f)
	if err != nil {
		return nil, fmt.Errorf("mdchunk: read %s: %w", path, err)
	}
	return buildChunks(source, raws, mtime), nil
}

// IngestString is Ingest's testable core: it runs the same algorithm over
// an in-memory document instead of a file.
func IngestString(source, content string, indexedAt time.Time) []chunk.Chunk {
	raws, _ := splitHeadings(strings.NewReader(content))
	return buildChunks(source, raws, indexedAt)
}

// splitHeadings performs the first pass: stream lines, maintain a heading
// stack, and flush a raw chunk each time a heading is seen or at EOF.
func splitHeadings(r io.Reader) ([]rawChunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var stack []headingEntry
	var pending []string
	pendingStart := 1
	lineNo := 0

	var raws []rawChunk

	flush := func(endLine int) {
		if len(pending) == 0 {
			return
		}
		// Skip a span that holds only blank lines. Otherwise keep its
		// lines verbatim, blank ones included; start/end are the span's
		// first and last line numbers.
		content := strings.Join(pending, "\n")
		trimmed := strings.TrimRight(content, "\n")
		if strings.TrimSpace(trimmed) == "" {
			pending = nil
			return
		}
		raws = append(raws, rawChunk{
			section:   headingPath(stack),
			lines:     append([]string(nil), pending...),
			startLine: pendingStart,
			endLine:   endLine,
		})
		pending = nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := headingRe.FindStringSubmatch(line); m != nil {
			// Flush whatever content preceded this heading under the
			// PREVIOUS heading path, ending at the line just above.
			flush(lineNo - 1)

			level := len(m[1])
			title := m[1] + " " + m[2]

			// Pop entries at or deeper than the new level, then push it.
			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, headingEntry{level: level, title: title})

			pendingStart = lineNo + 1
			continue
		}

		if len(pending) == 0 {
			pendingStart = lineNo
		}
		pending = append(pending, line)
	}
	if err := scanner.Err(); err != nil {
		return raws, err
	}
	flush(lineNo)
	return raws, nil
}

func headingPath(stack []headingEntry) string {
	titles := make([]string, len(stack))
	for i, e := range stack {
		titles[i] = e.title
	}
	return strings.Join(titles, " > ")
}

// buildChunks is the second pass: build final chunks by prepending up to
// overlapLines trailing lines of the previous raw chunk, separated by a
// literal "---" line (spec §4.1).
//
// The content hash is computed over the non-overlapped (primary) content,
// per DESIGN.md's resolution of spec §9 open question (a): dedup must be
// stable independent of which sibling section happened to precede a
// chunk on a given ingest pass.
func buildChunks(source string, raws []rawChunk, indexedAt time.Time) []chunk.Chunk {
	chunks := make([]chunk.Chunk, 0, len(raws))
	for i, raw := range raws {
		primary := strings.Join(raw.lines, "\n")
		if strings.TrimSpace(primary) == "" {
			continue
		}

		content := primary
		if i > 0 {
			prev := raws[i-1]
			tail := prev.lines
			if len(tail) > overlapLines {
				tail = tail[len(tail)-overlapLines:]
			}
			overlap := strings.TrimSpace(strings.Join(tail, "\n"))
			if overlap != "" {
				content = overlap + "\n---\n" + primary
			}
		}

		c := chunk.Chunk{
			Source:    source,
			Section:   raw.section,
			Content:   content,
			StartLine: raw.startLine,
			EndLine:   raw.endLine,
			IndexedAt: indexedAt,
		}
		c = c.WithHash(primary)
		chunks = append(chunks, c)
	}
	return chunks
}

// DedupAcrossCorpus drops any chunk whose content hash has already been
// seen, mutating seen in place. Later duplicates lose (spec §4.1,
// "Deduplication across the corpus").
func DedupAcrossCorpus(chunks []chunk.Chunk, seen map[string]bool) []chunk.Chunk {
	out := make([]chunk.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Hash != "" {
			if seen[c.Hash] {
				continue
			}
			seen[c.Hash] = true
		}
		out = append(out, c)
	}
	return out
}
