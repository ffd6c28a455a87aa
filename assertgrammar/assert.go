// Package assertgrammar implements the assertion mini-language evaluated
// against a validator's captured output: one newline-delimited assertion
// per line, evaluated fail-fast against the first failing form.
package assertgrammar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Output is the evaluation context: the captured stdout/exit code of the
// in-sandbox query step, plus the filesystem-check object the in-sandbox
// wrapper reports for file_exists/dir_exists/file_contains (spec.md §4.B,
// §6) — represented here as a resolved host directory that
// file_exists/dir_exists/file_contains resolve PATH against, since those
// forms check a directory the wrapper has already mounted.
type Output struct {
	Stdout   string
	ExitCode int
	// FixturesRoot is the directory file_exists/dir_exists/file_contains
	// resolve a relative PATH against (the fixtures mount's host-side
	// path, when configured).
	FixturesRoot string
}

// Evaluate runs every newline-delimited assertion in text against out,
// stopping at (and returning) the first failure. A nil return means every
// assertion passed; an empty text is a no-op success.
func Evaluate(text string, out Output) error {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := evaluateOne(line, out); err != nil {
			return err
		}
	}
	return nil
}

func evaluateOne(assertion string, out Output) error {
	fields := strings.Fields(assertion)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "rows":
		return evalRows(assertion, fields, out)
	case "contains", "stdout_contains":
		return evalContains(assertion, out.Stdout)
	case "exit_code":
		return evalExitCode(assertion, fields, out)
	case "file_exists":
		return evalFileExists(assertion, fields, out, false)
	case "dir_exists":
		return evalFileExists(assertion, fields, out, true)
	case "file_contains":
		return evalFileContains(assertion, fields, out)
	default:
		return fmt.Errorf("unknown assertion syntax: %q", assertion)
	}
}

func evalRows(assertion string, fields []string, out Output) error {
	if len(fields) != 3 {
		return fmt.Errorf("unknown assertion syntax: %q", assertion)
	}
	op := fields[1]
	n, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("invalid integer in assertion %q", assertion)
	}

	var arr []json.RawMessage
	trimmed := strings.TrimSpace(out.Stdout)
	if trimmed == "" || trimmed == "null" {
		arr = nil
	} else if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
		return fmt.Errorf("assertion %q: stdout is not a JSON array: %v", assertion, err)
	}
	count := len(arr)

	if !compare(count, op, n) {
		return fmt.Errorf("assertion failed: %q (rows=%d)", assertion, count)
	}
	return nil
}

func compare(a int, op string, b int) bool {
	switch op {
	case "=":
		return a == b
	case ">=":
		return a >= b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case "<":
		return a < b
	default:
		return false
	}
}

func evalContains(assertion, haystack string) error {
	needle, err := quotedString(assertion)
	if err != nil {
		return err
	}
	if needle == "" {
		return nil
	}
	if !strings.Contains(haystack, needle) {
		return fmt.Errorf("assertion failed: %q", assertion)
	}
	return nil
}

func evalExitCode(assertion string, fields []string, out Output) error {
	if len(fields) != 3 || fields[1] != "=" {
		return fmt.Errorf("unknown assertion syntax: %q", assertion)
	}
	n, err := strconv.Atoi(fields[2])
	if err != nil {
		return fmt.Errorf("invalid integer in assertion %q", assertion)
	}
	if out.ExitCode != n {
		return fmt.Errorf("assertion failed: %q (exit_code=%d)", assertion, out.ExitCode)
	}
	return nil
}

func evalFileExists(assertion string, fields []string, out Output, wantDir bool) error {
	if len(fields) != 2 {
		return fmt.Errorf("unknown assertion syntax: %q", assertion)
	}
	path := resolvePath(out.FixturesRoot, fields[1])
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("assertion failed: %q", assertion)
	}
	if info.IsDir() != wantDir {
		return fmt.Errorf("assertion failed: %q", assertion)
	}
	return nil
}

func evalFileContains(assertion string, fields []string, out Output) error {
	if len(fields) < 2 {
		return fmt.Errorf("unknown assertion syntax: %q", assertion)
	}
	path := resolvePath(out.FixturesRoot, fields[1])
	needle, err := quotedString(assertion)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("assertion failed: %q", assertion)
	}
	if !strings.Contains(string(data), needle) {
		return fmt.Errorf("assertion failed: %q", assertion)
	}
	return nil
}

func resolvePath(root, path string) string {
	if root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// quotedString extracts the first "..." literal from an assertion line.
func quotedString(assertion string) (string, error) {
	first := strings.IndexByte(assertion, '"')
	if first < 0 {
		return "", fmt.Errorf("unknown assertion syntax: %q", assertion)
	}
	last := strings.LastIndexByte(assertion, '"')
	if last <= first {
		return "", fmt.Errorf("unknown assertion syntax: %q", assertion)
	}
	return assertion[first+1 : last], nil
}
