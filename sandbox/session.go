// Package sandbox is the sandbox session abstraction of spec.md §4.C: a
// process-isolated execution surface for user content, with a per-run
// Cache (§4.F) memoizing sessions by validator name.
package sandbox

import "context"

// ExecRequest is one exec-command invocation against a running session:
// argv, optional environment bindings, and optional stdin content.
// Content MUST travel via Stdin, never interpolated into Argv, per
// spec.md §4.G step 8 and §9's stdin-vs-interpolation security
// rationale.
type ExecRequest struct {
	Argv  []string
	Env   map[string]string
	Stdin string
}

// Result is the validation-result record: an exit code (-1 when the
// process died without reporting one) plus captured stdout/stderr,
// lossy-decoded as UTF-8 byte streams drained to completion before the
// exit code is inspected.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// StartOptions configures Start: the image:tag to run, an optional host
// validator script to place at a fixed interior path, and an optional
// single bind-mount of a host directory (the fixtures mount).
type StartOptions struct {
	Image           string
	ScriptHostPath  string
	ScriptMountPath string
	MountHostPath   string
	MountInnerPath  string
}

// Session is the capability set the core consumes from a running
// sandbox: Exec and Drop. Sessions are never cloned or shared; the Cache
// exclusively owns every session for the duration of one build, handing
// a session to the dispatcher as a borrow for one block (spec.md §9).
type Session interface {
	// ID identifies the session for cache-hit assertions
	// (spec.md §8: two blocks sharing a validator name see the same ID).
	ID() string
	Exec(ctx context.Context, req ExecRequest) (Result, error)
	Drop(ctx context.Context) error
}

// LegacyEnv builds the VALIDATOR_* environment a validator opted into the
// legacy direct-exec path (spec.md §6, models.ValidatorDefinition.Legacy)
// expects: the whole validation runs as one in-sandbox exec of the
// validator's own script, driven entirely by env vars instead of a
// separate host-side pipeline. VALIDATOR_CONTENT is always present;
// the rest only when their input is non-empty.
func LegacyEnv(content, setup, assertions, expect string) map[string]string {
	env := map[string]string{"VALIDATOR_CONTENT": content}
	if setup != "" {
		env["VALIDATOR_SETUP"] = setup
	}
	if assertions != "" {
		env["VALIDATOR_ASSERTIONS"] = assertions
	}
	if expect != "" {
		env["VALIDATOR_EXPECT"] = expect
	}
	return env
}

// Starter starts a new Session from an image, the one capability the
// Cache needs beyond Session itself. Kept separate from Session so the
// production implementation's construction logic (pulling a client,
// negotiating a host) is swappable independent of per-session state.
type Starter interface {
	Start(ctx context.Context, opts StartOptions) (Session, error)
}
