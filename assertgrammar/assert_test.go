package assertgrammar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_EmptyIsNoOp(t *testing.T) {
	assert.NoError(t, Evaluate("", Output{Stdout: "[]"}))
	assert.NoError(t, Evaluate("   \n  \n", Output{Stdout: "[]"}))
}

func TestEvaluate_Rows(t *testing.T) {
	assert.NoError(t, Evaluate("rows >= 1", Output{Stdout: `[{"x":1},{"x":2}]`}))
	assert.Error(t, Evaluate("rows = 999", Output{Stdout: `[{"x":1}]`}))
}

func TestEvaluate_RowsOverNullIsZero(t *testing.T) {
	assert.NoError(t, Evaluate("rows = 0", Output{Stdout: "null"}))
}

func TestEvaluate_RowsInvalidInteger(t *testing.T) {
	err := Evaluate("rows >= abc", Output{Stdout: "[]"})
	assert.ErrorContains(t, err, "invalid integer")
}

func TestEvaluate_Contains(t *testing.T) {
	assert.NoError(t, Evaluate(`contains ""`, Output{Stdout: "anything"}))
	assert.NoError(t, Evaluate(`contains "needle"`, Output{Stdout: "has needle in it"}))
	assert.Error(t, Evaluate(`contains "missing"`, Output{Stdout: "nope"}))
}

func TestEvaluate_StdoutContainsAlias(t *testing.T) {
	assert.NoError(t, Evaluate(`stdout_contains "ok"`, Output{Stdout: "all ok here"}))
}

func TestEvaluate_ExitCode(t *testing.T) {
	assert.NoError(t, Evaluate("exit_code = 0", Output{ExitCode: 0}))
	assert.Error(t, Evaluate("exit_code = 0", Output{ExitCode: 1}))
}

func TestEvaluate_UnknownSyntax(t *testing.T) {
	err := Evaluate("frobnicate 1 2 3", Output{})
	assert.ErrorContains(t, err, "unknown assertion syntax")
}

func TestEvaluate_FailFastStopsAtFirst(t *testing.T) {
	err := Evaluate("exit_code = 0\nrows = 999", Output{ExitCode: 1, Stdout: "[]"})
	assert.ErrorContains(t, err, "exit_code")
}

func TestEvaluate_FileChecks(t *testing.T) {
	dir := t.TempDir()
	require := assert.New(t)
	require.NoError(os.WriteFile(filepath.Join(dir, "f.txt"), []byte("hello world"), 0o644))
	require.NoError(os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	out := Output{FixturesRoot: dir}
	assert.NoError(t, Evaluate("file_exists f.txt", out))
	assert.NoError(t, Evaluate("dir_exists sub", out))
	assert.NoError(t, Evaluate(`file_contains f.txt "hello"`, out))
	assert.Error(t, Evaluate("file_exists missing.txt", out))
	assert.Error(t, Evaluate("dir_exists f.txt", out))
}
