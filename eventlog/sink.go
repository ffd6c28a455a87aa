// Package eventlog is the leveled event sink collaborator spec.md §1
// names as an external dependency of the core: printf-style
// Info/Debug/Warn/Error methods, consumed everywhere by interface so
// tests can substitute a recording sink instead of the real logger.
package eventlog

import (
	"fmt"

	"github.com/flanksource/commons/logger"
)

// Sink is the leveled event sink the core writes diagnostics through.
type Sink interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// commonsSink forwards to github.com/flanksource/commons/logger, the way
// every teacher package (linters.Runner, config.Parser, ...) logs without
// taking a logger as a constructor parameter.
type commonsSink struct{}

func (commonsSink) Debugf(format string, args ...any) { logger.Debugf(format, args...) }
func (commonsSink) Infof(format string, args ...any)  { logger.Infof(format, args...) }
func (commonsSink) Warnf(format string, args ...any)  { logger.Warnf(format, args...) }
func (commonsSink) Errorf(format string, args ...any) { logger.Errorf(format, args...) }

// Default is the commons/logger-backed sink used outside of tests.
var Default Sink = commonsSink{}

// Recording is a test double that appends every call's formatted message
// to Lines, tagged with its level.
type Recording struct {
	Lines []string
}

func (r *Recording) Debugf(format string, args ...any) { r.record("DEBUG", format, args...) }
func (r *Recording) Infof(format string, args ...any)  { r.record("INFO", format, args...) }
func (r *Recording) Warnf(format string, args ...any)  { r.record("WARN", format, args...) }
func (r *Recording) Errorf(format string, args ...any) { r.record("ERROR", format, args...) }

func (r *Recording) record(level, format string, args ...any) {
	r.Lines = append(r.Lines, level+": "+fmt.Sprintf(format, args...))
}
