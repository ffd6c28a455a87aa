package models

import "strings"

// Markers holds the four fields the marker parser extracts from a fenced
// body: the three optional marker regions and the visible content left
// over once they're removed.
type Markers struct {
	Setup    string
	Assert   string
	Expect   string
	Visible  string // block body with marker regions removed and trimmed
}

// ValidationContent strips a leading "@@" from each line of Visible while
// keeping the line itself. This is the text actually submitted to the
// sandbox's query step; a "@@" in the middle of a line has no effect.
func (m Markers) ValidationContent() string {
	if m.Visible == "" {
		return ""
	}
	lines := strings.Split(m.Visible, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "@@") {
			lines[i] = line[2:]
		}
	}
	return strings.Join(lines, "\n")
}

// Block is a validator-block record: a fenced region whose info string
// named a non-empty validator.
type Block struct {
	Validator string
	Skip      bool
	Hidden    bool
	Markers   Markers

	// ByteStart/ByteEnd locate the whole fence (including delimiters) in
	// the original chapter source; InnerStart/InnerEnd locate the raw
	// text between the fence delimiters. Populated by markparse, consumed
	// by rewrite.
	ByteStart  int
	ByteEnd    int
	InnerStart int
	InnerEnd   int
}

// Validate enforces the skip/hidden mutual-exclusion invariant (E011).
func (b Block) Validate() error {
	if b.Skip && b.Hidden {
		return NewMutuallyExclusive()
	}
	return nil
}

// Result is the validation-result record: the captured exit code (-1 when
// the process died without reporting one) plus stdout/stderr.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (r Result) Success() bool { return r.ExitCode == 0 }
