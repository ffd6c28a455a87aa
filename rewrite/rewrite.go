// Package rewrite implements the chapter rewriter of spec.md §4.H: using
// parser event spans (markparse.FindFences), strip markers from fenced
// bodies and delete hidden fences, while preserving every other byte of
// Markdown verbatim. This is the span-preserving strategy spec.md §9
// calls "the single most important algorithmic decision in the core":
// the chapter is never regenerated from parse events, only spliced.
package rewrite

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mdvalidate/mdbook-validator/markparse"
)

type edit struct {
	start, end int
	replacement string
}

// Chapter returns a new chapter body with every validator block's
// markers stripped, every hidden validator block deleted entirely, and
// every other byte left untouched, except that runs of three or more
// newlines are then collapsed to two and leading/trailing whitespace is
// trimmed from the result.
func Chapter(source string) string {
	fences := markparse.FindFences([]byte(source))

	var edits []edit
	for _, f := range fences {
		if !f.Info.IsValidatorBlock() {
			continue
		}
		if f.Info.Hidden {
			edits = append(edits, edit{start: f.ByteStart, end: f.ByteEnd, replacement: ""})
			continue
		}
		stripped := innerStripped(f.RawText)
		edits = append(edits, edit{start: f.InnerStart, end: f.InnerEnd, replacement: stripped})
	}

	// Sort by start offset descending so earlier offsets remain valid as
	// each edit is applied against the still-mutating byte slice.
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })

	out := source
	for _, e := range edits {
		out = out[:e.start] + e.replacement + out[e.end:]
	}

	out = collapseBlankLines(out)
	return strings.TrimSpace(out)
}

var threeOrMoreNewlines = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return threeOrMoreNewlines.ReplaceAllString(s, "\n\n")
}

// innerStripped computes the marker-stripped, trimmed inner text for a
// non-hidden validator block: drop @@-prefixed lines from rendered
// output and excise every marker region, leaving only the visible body.
// Grounded on original_source/src/transpiler.rs's strip_markers, but
// applied here as the replacement text for one span rather than as a
// whole-document event-reconstruction pass.
func innerStripped(rawText string) string {
	m := markparse.ExtractMarkers(rawText)
	visible := stripHiddenLines(m.Visible)
	if visible == "" {
		return ""
	}
	return visible + "\n"
}

// stripHiddenLines drops every line whose first two bytes are "@@" from
// rendered output (output stripping, distinct from the validation
// stripping markparse.Markers.ValidationContent performs).
func stripHiddenLines(visible string) string {
	if visible == "" {
		return ""
	}
	lines := strings.Split(visible, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "@@") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
