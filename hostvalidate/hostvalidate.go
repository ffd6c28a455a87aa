// Package hostvalidate drives the validator-specific host script with the
// sandbox's stdout as its stdin, plus the assertion/expect strings and
// the sandbox's stderr exported as three well-known environment
// variables. Grounded near-literally on
// original_source/src/host_validator.rs.
package hostvalidate

import (
	"context"

	"github.com/mdvalidate/mdbook-validator/hostrun"
)

const (
	EnvAssertions      = "VALIDATOR_ASSERTIONS"
	EnvExpect          = "VALIDATOR_EXPECT"
	EnvContainerStderr = "VALIDATOR_CONTAINER_STDERR"
	EnvFixturesDir     = "VALIDATOR_FIXTURES_DIR"
)

// Input bundles everything the host script needs: the in-sandbox query's
// captured stdout (fed to the script's stdin) plus the block's assertion
// and expect text and the query's captured stderr (exported as env vars,
// present only when non-empty). FixturesDir, when set, is the host-side
// fixtures mount path the file_exists/dir_exists/file_contains assertion
// forms resolve relative paths against.
type Input struct {
	ScriptPath      string
	QueryStdout     string
	Assertions      string
	Expect          string
	ContainerStderr string
	FixturesDir     string
}

// Run executes the host script and returns its structured result. The
// core's job here is routing inputs correctly and classifying the
// result; the host script itself is the authority on assertion
// semantics, using assertgrammar as its shared library of primitives.
func Run(ctx context.Context, runner hostrun.Runner, in Input) (hostrun.Output, error) {
	env := map[string]string{}
	if in.Assertions != "" {
		env[EnvAssertions] = in.Assertions
	}
	if in.Expect != "" {
		env[EnvExpect] = in.Expect
	}
	if in.ContainerStderr != "" {
		env[EnvContainerStderr] = in.ContainerStderr
	}
	if in.FixturesDir != "" {
		env[EnvFixturesDir] = in.FixturesDir
	}

	return runner.Run(ctx, hostrun.Request{
		ScriptPath: in.ScriptPath,
		Stdin:      in.QueryStdout,
		Env:        env,
	})
}
