package markparse

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/mdvalidate/mdbook-validator/models"
)

// Fence is one fenced code block located in a chapter's source, with the
// byte spans rewrite needs to splice the original bytes: ByteStart/End
// cover the whole fence including both delimiter lines, InnerStart/End
// cover the raw text between them (goldmark's own segment boundaries,
// which already exclude the delimiter lines).
type Fence struct {
	Info       InfoString
	RawText    string
	ByteStart  int
	ByteEnd    int
	InnerStart int
	InnerEnd   int
}

// FindFences walks source with goldmark's parser (not its renderer) and
// returns every fenced code block in document order, with byte-accurate
// spans. This is the mechanism spec.md §4.H requires: locate spans with
// an event-driven, span-reporting parser, then edit the original bytes
// directly rather than regenerating Markdown from parsed events.
func FindFences(source []byte) []Fence {
	md := goldmark.New()
	doc := md.Parser().Parse(gmtext.NewReader(source))

	var fences []Fence
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		lines := fcb.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		innerStart := lines.At(0).Start
		innerEnd := lines.At(lines.Len() - 1).Stop

		byteStart := lineStart(source, innerStart)
		// walk backward from byteStart to include the opening fence line
		// (goldmark's line segments start at the first body line, not the
		// ``` opener).
		byteStart = fenceOpenerStart(source, byteStart)
		byteEnd := fenceCloserEnd(source, innerEnd)

		info := ""
		if fcb.Info != nil {
			info = string(fcb.Info.Text(source))
		}

		fences = append(fences, Fence{
			Info:       ParseInfoString(info),
			RawText:    string(fcb.Text(source)),
			ByteStart:  byteStart,
			ByteEnd:    byteEnd,
			InnerStart: innerStart,
			InnerEnd:   innerEnd,
		})
		return ast.WalkSkipChildren, nil
	})
	return fences
}

func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}

// fenceOpenerStart walks backward from the first body line to the start
// of the ``` opener line (the line immediately preceding it).
func fenceOpenerStart(source []byte, bodyLineStart int) int {
	if bodyLineStart == 0 {
		return 0
	}
	openerLineEnd := bodyLineStart - 1 // the newline ending the opener line
	return lineStart(source, openerLineEnd)
}

// fenceCloserEnd walks forward from the end of the last body line past
// the closer fence's own line, including its terminating newline when
// present.
func fenceCloserEnd(source []byte, bodyEnd int) int {
	pos := bodyEnd
	for pos < len(source) && source[pos] != '\n' {
		pos++
	}
	if pos < len(source) {
		pos++ // include the newline ending the closer line
	}
	return pos
}

// ToBlock converts a Fence into a models.Block when it names a validator;
// returns ok=false for non-validator fences, matching spec.md §4.A's
// "produces a validator-block record, or nothing".
func (f Fence) ToBlock() (models.Block, bool) {
	if !f.Info.IsValidatorBlock() {
		return models.Block{}, false
	}
	markers := ExtractMarkers(f.RawText)
	return models.Block{
		Validator:  f.Info.Validator,
		Skip:       f.Info.Skip,
		Hidden:     f.Info.Hidden,
		Markers:    markers,
		ByteStart:  f.ByteStart,
		ByteEnd:    f.ByteEnd,
		InnerStart: f.InnerStart,
		InnerEnd:   f.InnerEnd,
	}, true
}
