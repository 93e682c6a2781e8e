// Package chunker splits oversized text into bounded-size pieces along
// semantic boundaries, falling back to line boundaries.
package chunker

import (
	"regexp"
	"strings"
)

// boundaryRe matches the start of a function, class, or top-level
// declaration, optionally preceded by a block comment and optionally
// exported or async. Offsets of matches become split points.
var boundaryRe = regexp.MustCompile(
	`(?m)^(?:/\*[\s\S]*?\*/\s*)?(?:export\s+)?(?:default\s+)?(?:async\s+)?` +
		`(?:func\s+|function\s+|class\s+|interface\s+|type\s+\w+\s+(?:struct|interface)\b|def\s+|(?:const|let|var)\s+\w+\s*=\s*(?:async\s*)?\()`)

// Split breaks text into chunks of at most maxSize characters.
//
// Text already within maxSize is returned unchanged as a single chunk.
// Otherwise declaration boundaries are used as split points; spans that
// still exceed maxSize, or texts with no useful structure, fall back to
// line accumulation. A single line longer than maxSize is emitted whole:
// splitting finer than one line is out of scope.
func Split(text string, maxSize int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}

	matches := boundaryRe.FindAllStringIndex(text, -1)
	if len(matches) <= 1 {
		// No useful structure found.
		return splitByLines(text, maxSize)
	}

	offsets := boundaryOffsets(matches)

	var chunks []string
	for i, start := range offsets {
		end := len(text)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		span := text[start:end]
		if strings.TrimSpace(span) == "" {
			continue
		}
		if len(span) > maxSize {
			chunks = append(chunks, splitByLines(span, maxSize)...)
		} else {
			chunks = append(chunks, span)
		}
	}
	return chunks
}

// boundaryOffsets returns the start offsets of declaration boundaries,
// always including offset 0 so leading text is kept.
func boundaryOffsets(matches [][]int) []int {
	offsets := make([]int, 0, len(matches)+1)
	for _, m := range matches {
		offsets = append(offsets, m[0])
	}
	if len(offsets) == 0 || offsets[0] != 0 {
		offsets = append([]int{0}, offsets...)
	}
	return offsets
}

// splitByLines accumulates lines into a buffer, flushing whenever adding
// the next line would exceed maxSize and the buffer is non-empty.
func splitByLines(text string, maxSize int) []string {
	var chunks []string
	var buf strings.Builder

	for _, line := range strings.Split(text, "\n") {
		// +1 for the newline joining the buffer and this line.
		if buf.Len() > 0 && buf.Len()+1+len(line) > maxSize {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
	}
	if strings.TrimSpace(buf.String()) != "" {
		chunks = append(chunks, buf.String())
	}
	return chunks
}
