// Package hostrun is the host script runner abstraction of spec.md §4.D:
// spawn a local shell script, feed it stdin, set environment variables,
// collect stdout/stderr/exit code. Kept as a narrow interface (one Run
// method, static parameterization per spec.md §9) so hostvalidate's hot
// path never imports os/exec directly and tests can substitute a scripted
// double.
package hostrun

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Request describes one script invocation.
type Request struct {
	ScriptPath string
	Stdin      string
	Env        map[string]string
}

// Output is the result of running a script: an exit code (-1 when the
// process could not report one) plus captured stdout/stderr.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner spawns a host shell with a path argument. Failures to spawn are
// reported distinctly from a successful non-zero exit via the returned
// error; a non-zero exit with no spawn failure is reported through
// Output.ExitCode, not err.
type Runner interface {
	Run(ctx context.Context, req Request) (Output, error)
}

// Real runs scripts with "sh <path>", matching
// original_source/src/command.rs's RealCommandRunner and the subprocess
// shape of linters/ruff/ruff.go.
type Real struct{}

func (Real) Run(ctx context.Context, req Request) (Output, error) {
	cmd := exec.CommandContext(ctx, "sh", req.ScriptPath)
	cmd.Env = os.Environ()
	for k, v := range req.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stdin = bytes.NewBufferString(req.Stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return Output{ExitCode: 0, Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}

	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		return Output{ExitCode: exitErr.ExitCode(), Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}

	return Output{ExitCode: -1, Stdout: stdout.String(), Stderr: stderr.String()},
		fmt.Errorf("failed to run host script %s: %w", req.ScriptPath, err)
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}
