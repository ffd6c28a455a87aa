package markparse

import (
	"strings"

	"github.com/mdvalidate/mdbook-validator/models"
)

var markerTags = []string{"SETUP", "ASSERT", "EXPECT"}

// ExtractMarkers pulls the SETUP, ASSERT, and EXPECT regions out of a
// fenced block's raw body, in any order, recognizing only the first of
// each type, and returns the remaining, trimmed visible content.
func ExtractMarkers(content string) models.Markers {
	var m models.Markers
	remaining := content

	remaining, setup, found := extractMarkerBlock(remaining, "SETUP")
	if found {
		m.Setup = setup
	}
	remaining, assert, found := extractMarkerBlock(remaining, "ASSERT")
	if found {
		m.Assert = assert
	}
	remaining, expect, found := extractMarkerBlock(remaining, "EXPECT")
	if found {
		m.Expect = expect
	}

	m.Visible = strings.TrimSpace(remaining)
	return m
}

// extractMarkerBlock finds the first occurrence of a "<!--TAG ... -->"
// region whose opener begins at the start of a line, and splices it out
// of content. An unclosed marker (opener present, no "-->" found after
// it) is treated as absent: found is false and content is returned
// unchanged, per spec.md §8's boundary behavior.
func extractMarkerBlock(content, tag string) (remaining, inner string, found bool) {
	opener := "<!--" + tag
	start := findLineStart(content, opener)
	if start < 0 {
		return content, "", false
	}

	nlIdx := strings.IndexByte(content[start:], '\n')
	if nlIdx < 0 {
		return content, "", false
	}
	bodyStart := start + nlIdx + 1

	closerRel := strings.Index(content[bodyStart:], "-->")
	if closerRel < 0 {
		return content, "", false
	}
	closerStart := bodyStart + closerRel
	closerEnd := closerStart + len("-->")

	inner = strings.TrimSpace(content[bodyStart:closerStart])

	removeFrom := start
	if removeFrom > 0 && content[removeFrom-1] == '\n' {
		removeFrom--
	}
	removeTo := closerEnd
	if removeTo < len(content) && content[removeTo] == '\n' {
		removeTo++
	}

	remaining = content[:removeFrom] + content[removeTo:]
	return remaining, inner, true
}

// findLineStart returns the byte offset of the first occurrence of
// needle that begins at the start of content or is immediately preceded
// by a newline, or -1 if none is found.
func findLineStart(content, needle string) int {
	offset := 0
	for {
		idx := strings.Index(content[offset:], needle)
		if idx < 0 {
			return -1
		}
		abs := offset + idx
		if abs == 0 || content[abs-1] == '\n' {
			return abs
		}
		offset = abs + 1
	}
}
