package walk_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdvalidate/mdbook-validator/book"
	"github.com/mdvalidate/mdbook-validator/dispatch"
	"github.com/mdvalidate/mdbook-validator/hostrun"
	"github.com/mdvalidate/mdbook-validator/models"
	"github.com/mdvalidate/mdbook-validator/sandbox"
	"github.com/mdvalidate/mdbook-validator/sandbox/sandboxtest"
	"github.com/mdvalidate/mdbook-validator/walk"
)

// newEndToEnd wires a real dispatch.Dispatcher against scripted sandbox
// and host-runner doubles, the same shape dispatch_test.go uses, but
// driven through walk.Walker so these tests exercise the full
// parse->dispatch->rewrite pipeline the end-to-end scenarios of
// spec.md §8 describe.
func newEndToEnd(t *testing.T, starter *sandboxtest.FakeStarter, runner hostrun.Runner) *walk.Walker {
	t.Helper()
	scriptPath := filepath.Join(t.TempDir(), "validate.sh")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/bin/sh\ncat\n"), 0o755))

	cfg := &models.Config{Validators: map[string]models.ValidatorDefinition{
		"sqlite": {Container: "sqlite:3", Script: scriptPath},
	}}
	cache := sandbox.NewCache(starter, nil)
	d := dispatch.New(cfg, t.TempDir(), cache, runner, nil)
	return walk.New(d)
}

// Scenario 1: happy path, SQL, with SETUP and ASSERT.
func TestScenario_HappyPathWithSetupAndAssert(t *testing.T) {
	starter := sandboxtest.NewFakeStarter()
	starter.Sessions["sqlite:3"] = &sandboxtest.FakeSession{
		Name: "sqlite:3",
		Steps: []sandboxtest.Step{
			{Result: sandbox.Result{ExitCode: 0}},                         // SETUP
			{Result: sandbox.Result{ExitCode: 0, Stdout: "[{\"x\":42}]"}}, // query
		},
	}
	runner := &hostrun.Fake{Outputs: []hostrun.Output{{ExitCode: 0}}}
	w := newEndToEnd(t, starter, runner)

	content := "```sql validator=sqlite\n" +
		"<!--SETUP\n" +
		"sqlite3 /tmp/test.db 'CREATE TABLE t(x INTEGER); INSERT INTO t VALUES(42);'\n" +
		"-->\n" +
		"SELECT * FROM t;\n" +
		"<!--ASSERT\n" +
		"rows >= 1\n" +
		"-->\n" +
		"```\n"
	tree := []book.Item{{Chapter: &book.Chapter{Name: "ch", Content: content}}}

	require.NoError(t, w.Run(context.Background(), tree))
	got := tree[0].Chapter.Content
	assert.Contains(t, got, "```sql validator=sqlite\nSELECT * FROM t;\n```")
	assert.NotContains(t, got, "SETUP")
	assert.NotContains(t, got, "ASSERT")
	assert.NotContains(t, got, "CREATE TABLE")
}

// Scenario 2: a hidden block validates but disappears entirely.
func TestScenario_HiddenBlockValidatesThenDisappears(t *testing.T) {
	starter := sandboxtest.NewFakeStarter()
	starter.Sessions["sqlite:3"] = &sandboxtest.FakeSession{
		Name: "sqlite:3",
		Steps: []sandboxtest.Step{
			{Result: sandbox.Result{ExitCode: 0}}, // SETUP
			{Result: sandbox.Result{ExitCode: 0, Stdout: "[]"}},
		},
	}
	runner := &hostrun.Fake{Outputs: []hostrun.Output{{ExitCode: 0}}}
	w := newEndToEnd(t, starter, runner)

	content := "before\n\n```sql validator=sqlite hidden\n" +
		"<!--SETUP\ncreate stuff\n-->\n" +
		"SELECT 1;\n" +
		"```\n\nafter\n"
	tree := []book.Item{{Chapter: &book.Chapter{Name: "ch", Content: content}}}

	require.NoError(t, w.Run(context.Background(), tree))
	got := tree[0].Chapter.Content
	assert.NotContains(t, got, "```sql")
	assert.NotContains(t, got, "SELECT 1;")
	assert.Contains(t, got, "before")
	assert.Contains(t, got, "after")
}

// Scenario 3: skip+hidden produces E011 without any sandbox work.
func TestScenario_SkipAndHiddenIsMutuallyExclusive(t *testing.T) {
	starter := sandboxtest.NewFakeStarter()
	runner := &hostrun.Fake{}
	w := newEndToEnd(t, starter, runner)

	content := "```sql validator=sqlite skip hidden\nSELECT 1;\n```\n"
	tree := []book.Item{{Chapter: &book.Chapter{Name: "ch", Content: content}}}

	err := w.Run(context.Background(), tree)
	require.Error(t, err)
	merr, ok := models.AsError(err)
	require.True(t, ok)
	assert.Equal(t, models.KindMutuallyExclusive, merr.Kind)
	assert.Empty(t, starter.Started)
}

// Scenario 4: an unknown validator name produces E007.
func TestScenario_UnknownValidatorName(t *testing.T) {
	starter := sandboxtest.NewFakeStarter()
	runner := &hostrun.Fake{}
	w := newEndToEnd(t, starter, runner)

	content := "```sql validator=nonexistent\nSELECT 1;\n```\n"
	tree := []book.Item{{Chapter: &book.Chapter{Name: "ch", Content: content}}}

	err := w.Run(context.Background(), tree)
	require.Error(t, err)
	merr, ok := models.AsError(err)
	require.True(t, ok)
	assert.Equal(t, models.KindUnknownValidator, merr.Kind)
	assert.Equal(t, "nonexistent", merr.Name)
}

// Scenario 5: a failing assertion produces E006 carrying the source text.
func TestScenario_AssertionFailureCarriesSourceText(t *testing.T) {
	starter := sandboxtest.NewFakeStarter()
	starter.Sessions["sqlite:3"] = &sandboxtest.FakeSession{
		Name:  "sqlite:3",
		Steps: []sandboxtest.Step{{Result: sandbox.Result{ExitCode: 0, Stdout: "[{\"value\":1}]"}}},
	}
	runner := &hostrun.Fake{Outputs: []hostrun.Output{{ExitCode: 1, Stderr: "assertion failed: rows = 999"}}}
	w := newEndToEnd(t, starter, runner)

	content := "```sql validator=sqlite\n" +
		"SELECT 1 as value;\n" +
		"<!--ASSERT\nrows = 999\n-->\n" +
		"```\n"
	tree := []book.Item{{Chapter: &book.Chapter{Name: "ch", Content: content}}}

	err := w.Run(context.Background(), tree)
	require.Error(t, err)
	merr, ok := models.AsError(err)
	require.True(t, ok)
	assert.Equal(t, models.KindValidationFailed, merr.Kind)
	assert.Contains(t, merr.Message, "SELECT 1 as value;")
}

// Scenario 6: an "@@"-prefixed line is submitted to the sandbox with the
// prefix stripped, but stays hidden from the rewritten output.
func TestScenario_AtAtPrefixedLineHiddenFromOutputOnly(t *testing.T) {
	starter := sandboxtest.NewFakeStarter()
	session := &sandboxtest.FakeSession{
		Name:  "sqlite:3",
		Steps: []sandboxtest.Step{{Result: sandbox.Result{ExitCode: 0, Stdout: "[]"}}},
	}
	starter.Sessions["sqlite:3"] = session
	runner := &hostrun.Fake{Outputs: []hostrun.Output{{ExitCode: 0}}}
	w := newEndToEnd(t, starter, runner)

	content := "```sql validator=sqlite\n" +
		"@@SELECT 1 as hidden_result;\n" +
		"SELECT 2 as visible_result;\n" +
		"```\n"
	tree := []book.Item{{Chapter: &book.Chapter{Name: "ch", Content: content}}}

	require.NoError(t, w.Run(context.Background(), tree))

	require.Len(t, session.Execs, 1)
	assert.Contains(t, session.Execs[0].Stdin, "SELECT 1 as hidden_result;")
	assert.Contains(t, session.Execs[0].Stdin, "SELECT 2 as visible_result;")

	got := tree[0].Chapter.Content
	assert.NotContains(t, got, "hidden_result")
	assert.Contains(t, got, "SELECT 2 as visible_result;")
}
