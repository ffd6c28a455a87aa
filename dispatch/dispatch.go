// Package dispatch implements the block dispatcher of spec.md §4.G: for
// each block, resolve validator config, acquire a sandbox, run SETUP,
// run the query, hand output to the host validator, and classify
// failure into the closed error taxonomy.
package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/mdvalidate/mdbook-validator/config"
	"github.com/mdvalidate/mdbook-validator/eventlog"
	"github.com/mdvalidate/mdbook-validator/hostrun"
	"github.com/mdvalidate/mdbook-validator/hostvalidate"
	"github.com/mdvalidate/mdbook-validator/models"
	"github.com/mdvalidate/mdbook-validator/sandbox"
)

// DefaultExecCommand is the per-validator-name default used when a
// validator's configuration does not specify one explicitly (spec.md
// §4.G). It defers to config.Builtins, the catalog's single source of
// truth, falling back to "cat" for any name with no registered preset.
func DefaultExecCommand(name string) string {
	if cmd, ok := config.QueryCommandFor(name); ok {
		return cmd
	}
	return "cat"
}

// execTemplateData is the context a validator's exec-command string can
// reference via {{.FixturesDir}}/{{.BookRoot}}, letting a book.toml
// definition point at the fixtures mount symbolically instead of
// hardcoding /fixtures.
type execTemplateData struct {
	FixturesDir string
	BookRoot    string
}

// expandExecCommand renders the {{.FixturesDir}}/{{.BookRoot}} placeholders
// a validator's configured exec-command may contain. Applied only to the
// command string itself, never to block content, so it cannot become
// another path for smuggling block content into the shell (spec.md §4.G
// step 8's stdin-only invariant).
func expandExecCommand(cmd string, data execTemplateData) (string, error) {
	if !strings.Contains(cmd, "{{") {
		return cmd, nil
	}
	tmpl, err := template.New("exec-command").Option("missingkey=error").Parse(cmd)
	if err != nil {
		return "", fmt.Errorf("parsing exec command template: %w", err)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("expanding exec command template: %w", err)
	}
	return out.String(), nil
}

// Dispatcher owns a sandbox cache and a host script runner, and dispatches
// one block at a time. One Dispatcher is constructed per build run and
// shares its cache across every chapter the walker visits.
type Dispatcher struct {
	Config      *models.Config
	BookRoot    string
	FixturesDir string // resolved, canonicalized host path, or ""

	Cache  *sandbox.Cache
	Runner hostrun.Runner
	Log    eventlog.Sink
}

func New(cfg *models.Config, bookRoot string, cache *sandbox.Cache, runner hostrun.Runner, log eventlog.Sink) *Dispatcher {
	if log == nil {
		log = eventlog.Default
	}
	return &Dispatcher{Config: cfg, BookRoot: bookRoot, Cache: cache, Runner: runner, Log: log}
}

// Dispatch runs the ten-step contract of spec.md §4.G for one block. A
// nil return means the block either passed validation or was skipped;
// any non-nil return is a *models.Error from the closed taxonomy.
func (d *Dispatcher) Dispatch(ctx context.Context, chapterName string, b models.Block) error {
	// Step 0 (E011 check happens earlier, at parse time in the walker,
	// before any block in the chapter is dispatched — see walk.Walker).

	// Step 1: skip disables validation but the block is still rewritten.
	if b.Skip {
		return nil
	}

	// Step 2: resolve validator configuration.
	def, err := d.Config.GetValidator(b.Validator)
	if err != nil {
		return err
	}

	// Step 3: validate the configuration.
	if verr := def.Validate(); verr != nil {
		return models.NewInvalidConfig(b.Validator, verr.Error())
	}

	// Step 4: verify the host script exists on disk before touching the
	// sandbox.
	scriptPath := def.Script
	if !filepath.IsAbs(scriptPath) {
		scriptPath = filepath.Join(d.BookRoot, def.Script)
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return models.NewScriptNotFound(def.Script)
	}

	if def.Legacy {
		return d.dispatchLegacy(ctx, chapterName, b, def, scriptPath)
	}

	// Step 5: acquire the sandbox session from the cache.
	startOpts := sandbox.StartOptions{Image: ensureTag(def.Container)}
	if d.FixturesDir != "" {
		startOpts.MountHostPath = d.FixturesDir
		startOpts.MountInnerPath = "/fixtures"
	}
	session, err := d.Cache.Get(ctx, b.Validator, startOpts)
	if err != nil {
		return err
	}

	// Step 6: SETUP, when present and non-empty.
	setup := strings.TrimSpace(b.Markers.Setup)
	if setup != "" {
		res, err := session.Exec(ctx, sandbox.ExecRequest{Argv: []string{"sh", "-c", setup}})
		if err != nil {
			return models.NewSandboxExec(err, "%s", err.Error())
		}
		if res.ExitCode != 0 {
			return models.NewSetupFailed(res.ExitCode, res.Stderr)
		}
	}

	// Step 7: compute effective validation content.
	queryContent := strings.TrimSpace(b.Markers.ValidationContent())
	if queryContent == "" {
		return models.NewValidationFailed(-1, fmt.Sprintf(
			"chapter %q validator %q: query content is empty", chapterName, b.Validator))
	}

	// Step 8: exec the query, content via stdin only.
	execCmd := def.QueryCommand
	if execCmd == "" {
		execCmd = DefaultExecCommand(b.Validator)
	}
	execCmd, err = expandExecCommand(execCmd, execTemplateData{FixturesDir: "/fixtures", BookRoot: d.BookRoot})
	if err != nil {
		return models.NewInvalidConfig(b.Validator, err.Error())
	}
	queryRes, err := session.Exec(ctx, sandbox.ExecRequest{
		Argv:  []string{"sh", "-c", execCmd},
		Stdin: queryContent,
	})
	if err != nil {
		return models.NewSandboxExec(err, "%s", err.Error())
	}
	if queryRes.ExitCode != 0 {
		return models.NewQueryFailed(queryRes.ExitCode, queryRes.Stderr)
	}

	// Step 9: invoke the host validator.
	hostOut, err := hostvalidate.Run(ctx, d.Runner, hostvalidate.Input{
		ScriptPath:      scriptPath,
		QueryStdout:     queryRes.Stdout,
		Assertions:      b.Markers.Assert,
		Expect:          b.Markers.Expect,
		ContainerStderr: queryRes.Stderr,
		FixturesDir:     d.FixturesDir,
	})
	if err != nil {
		return models.NewSandboxExec(err, "host validator failed to run: %s", err.Error())
	}

	// Step 10: classify the host validator's result.
	if hostOut.ExitCode != 0 {
		message := fmt.Sprintf(
			"chapter %q validator %q\nvisible content:\n%s\nhost stderr:\n%s\nhost stdout:\n%s",
			chapterName, b.Validator, b.Markers.Visible, hostOut.Stderr, hostOut.Stdout)
		return models.NewValidationFailed(hostOut.ExitCode, message)
	}

	return nil
}

// dispatchLegacy runs the direct-exec path of spec.md §6: the validator's
// own script is copied into the sandbox and run there as a single exec,
// with setup/content/assertions/expect passed as VALIDATOR_* env vars
// instead of going through the host-validator pipeline. Off by default
// (models.ValidatorDefinition.Legacy); kept for validator scripts written
// against original_source's direct container.exec_with_env model.
func (d *Dispatcher) dispatchLegacy(ctx context.Context, chapterName string, b models.Block, def models.ValidatorDefinition, scriptPath string) error {
	queryContent := strings.TrimSpace(b.Markers.ValidationContent())
	if queryContent == "" {
		return models.NewValidationFailed(-1, fmt.Sprintf(
			"chapter %q validator %q: query content is empty", chapterName, b.Validator))
	}

	startOpts := sandbox.StartOptions{
		Image:           ensureTag(def.Container),
		ScriptHostPath:  scriptPath,
		ScriptMountPath: "/validate.sh",
	}
	if d.FixturesDir != "" {
		startOpts.MountHostPath = d.FixturesDir
		startOpts.MountInnerPath = "/fixtures"
	}
	session, err := d.Cache.Get(ctx, b.Validator, startOpts)
	if err != nil {
		return err
	}

	env := sandbox.LegacyEnv(queryContent, strings.TrimSpace(b.Markers.Setup), b.Markers.Assert, b.Markers.Expect)
	res, err := session.Exec(ctx, sandbox.ExecRequest{Argv: []string{"sh", "/validate.sh"}, Env: env})
	if err != nil {
		return models.NewSandboxExec(err, "%s", err.Error())
	}
	if res.ExitCode != 0 {
		message := fmt.Sprintf(
			"chapter %q validator %q (legacy direct-exec)\nvisible content:\n%s\nstderr:\n%s\nstdout:\n%s",
			chapterName, b.Validator, b.Markers.Visible, res.Stderr, res.Stdout)
		return models.NewValidationFailed(res.ExitCode, message)
	}
	return nil
}

func ensureTag(image string) string {
	if image == "" {
		return image
	}
	if strings.Contains(image, ":") {
		slash := strings.LastIndex(image, "/")
		colon := strings.LastIndex(image, ":")
		if colon > slash {
			return image
		}
	}
	return image + ":latest"
}
