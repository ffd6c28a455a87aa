package hostvalidate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdvalidate/mdbook-validator/hostrun"
)

func TestRun_RoutesEnvAndStdin(t *testing.T) {
	fake := &hostrun.Fake{Outputs: []hostrun.Output{{ExitCode: 0, Stdout: "ok"}}}

	out, err := Run(context.Background(), fake, Input{
		ScriptPath:      "validate.sh",
		QueryStdout:     `[{"x":1}]`,
		Assertions:      "rows = 1",
		Expect:          "",
		ContainerStderr: "warn: nothing",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, out.ExitCode)

	require.Len(t, fake.Calls, 1)
	call := fake.Calls[0]
	assert.Equal(t, "validate.sh", call.ScriptPath)
	assert.Equal(t, `[{"x":1}]`, call.Stdin)
	assert.Equal(t, "rows = 1", call.Env[EnvAssertions])
	assert.Equal(t, "warn: nothing", call.Env[EnvContainerStderr])
	_, hasExpect := call.Env[EnvExpect]
	assert.False(t, hasExpect, "absent Expect must not set the env var")
}

func TestRun_FixturesDirOnlySetWhenNonEmpty(t *testing.T) {
	fake := &hostrun.Fake{Outputs: []hostrun.Output{{ExitCode: 0}, {ExitCode: 0}}}

	_, err := Run(context.Background(), fake, Input{ScriptPath: "validate.sh"})
	require.NoError(t, err)
	_, has := fake.Calls[0].Env[EnvFixturesDir]
	assert.False(t, has)

	_, err = Run(context.Background(), fake, Input{ScriptPath: "validate.sh", FixturesDir: "/fixtures"})
	require.NoError(t, err)
	assert.Equal(t, "/fixtures", fake.Calls[1].Env[EnvFixturesDir])
}
