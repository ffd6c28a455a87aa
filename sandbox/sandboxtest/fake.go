// Package sandboxtest provides a scripted sandbox.Starter/Session pair
// for dispatcher and cache tests, so they never touch a real Docker
// daemon — the "test doubles returning scripted results" variant spec.md
// §9 calls for alongside the production implementation.
package sandboxtest

import (
	"context"
	"fmt"

	"github.com/mdvalidate/mdbook-validator/sandbox"
)

// Step is one scripted response to an Exec call, matched in call order.
type Step struct {
	Result sandbox.Result
	Err    error
}

// FakeSession replays Steps in order for every Exec call, recording the
// requests it received.
type FakeSession struct {
	Name  string
	Steps []Step
	Execs []sandbox.ExecRequest
	Drops int

	callIndex int
}

func (f *FakeSession) ID() string { return f.Name }

func (f *FakeSession) Exec(ctx context.Context, req sandbox.ExecRequest) (sandbox.Result, error) {
	f.Execs = append(f.Execs, req)
	if f.callIndex >= len(f.Steps) {
		return sandbox.Result{}, fmt.Errorf("sandboxtest: no scripted step %d for session %s", f.callIndex, f.Name)
	}
	step := f.Steps[f.callIndex]
	f.callIndex++
	return step.Result, step.Err
}

func (f *FakeSession) Drop(ctx context.Context) error {
	f.Drops++
	return nil
}

// FakeStarter hands out one *FakeSession per validator image the first
// time it's asked, so repeated Start calls within a test can assert
// cache-hit behavior by comparing sessions returned for the same name.
type FakeStarter struct {
	// Sessions, keyed by StartOptions.Image, pre-populates the session a
	// given image should receive; when absent a fresh empty FakeSession
	// is created and stored back for inspection via Started.
	Sessions map[string]*FakeSession
	Started  map[string]*FakeSession
	StartErr map[string]error
}

func NewFakeStarter() *FakeStarter {
	return &FakeStarter{
		Sessions: map[string]*FakeSession{},
		Started:  map[string]*FakeSession{},
		StartErr: map[string]error{},
	}
}

func (f *FakeStarter) Start(ctx context.Context, opts sandbox.StartOptions) (sandbox.Session, error) {
	if err, ok := f.StartErr[opts.Image]; ok {
		return nil, err
	}
	s, ok := f.Sessions[opts.Image]
	if !ok {
		s = &FakeSession{Name: opts.Image}
		f.Sessions[opts.Image] = s
	}
	f.Started[opts.Image] = s
	return s, nil
}
