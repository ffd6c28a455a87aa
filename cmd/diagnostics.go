package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/mdvalidate/mdbook-validator/models"
)

var diagnosticPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("196")).
	Padding(0, 1)

var diagnosticCodeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

// renderDiagnostic boxes a closed-taxonomy error (E001-E011) the way the
// teacher's output.formatter boxes file/violation groups, so a fatal
// error from a book walk reads as one diagnostic panel instead of a bare
// Go error line. Errors outside the taxonomy fall back to plain text.
func renderDiagnostic(err error) string {
	merr, ok := models.AsError(err)
	if !ok {
		return err.Error()
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s\n", diagnosticCodeStyle.Render(merr.Kind.Code()))
	fmt.Fprint(&body, merr.Error())

	return diagnosticPanelStyle.Render(body.String())
}

// chapterGlyph returns a colored pass/fail glyph for one chapter's
// validation result, mirroring the red/green inline indicators
// cmd/check.go prints per violation in the teacher.
func chapterGlyph(ok bool) string {
	if ok {
		return color.GreenString("✓")
	}
	return color.RedString("✗")
}
