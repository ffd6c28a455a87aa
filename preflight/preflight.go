// Package preflight recovers the dependency preflight check documented in
// original_source/src/dependency.rs: before a build starts, warn (never
// fail) if docker is unreachable, since every validator block will hit
// a sandbox startup error otherwise and the first one is a confusing
// place to learn that. Kept as a trait-shaped Checker so tests don't
// shell out, matching dependency.rs's DependencyChecker/RealChecker split.
package preflight

import (
	"os/exec"

	"github.com/mdvalidate/mdbook-validator/eventlog"
)

// Checker runs one external command and reports whether it exited zero.
type Checker interface {
	CheckCommand(cmd string, args ...string) bool
}

// RealChecker shells out via os/exec.
type RealChecker struct{}

func (RealChecker) CheckCommand(cmd string, args ...string) bool {
	return exec.Command(cmd, args...).Run() == nil
}

// Status is the result of checking every dependency this core relies on.
type Status struct {
	DockerAvailable bool
}

// CheckDocker reports whether `docker info` exits zero.
func CheckDocker(c Checker) bool {
	return c.CheckCommand("docker", "info")
}

// CheckAll runs every dependency check. It never returns an error: a
// missing dependency is reported as a Status field, not a failure,
// leaving the caller to decide how loud to be about it.
func CheckAll(c Checker) Status {
	return Status{DockerAvailable: CheckDocker(c)}
}

// Warn logs a warning for every unavailable dependency found in status.
// It never stops a build: the first real sandbox startup will fail with
// a precise E002 if docker truly is unreachable, this is only an early,
// friendlier heads-up.
func Warn(log eventlog.Sink, status Status) {
	if log == nil {
		log = eventlog.Default
	}
	if !status.DockerAvailable {
		log.Warnf("docker does not appear to be available (`docker info` failed); validator sandboxes will fail to start")
	}
}
