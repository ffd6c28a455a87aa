package hostrun

import "context"

// Fake is a scripted Runner double for tests that never touch a real
// shell, grounded on the "test doubles returning scripted results"
// pattern spec.md §9 calls out for the runner abstraction.
type Fake struct {
	Outputs []Output
	Errs    []error
	Calls   []Request

	callIndex int
}

func (f *Fake) Run(ctx context.Context, req Request) (Output, error) {
	f.Calls = append(f.Calls, req)
	i := f.callIndex
	f.callIndex++

	var out Output
	if i < len(f.Outputs) {
		out = f.Outputs[i]
	}
	var err error
	if i < len(f.Errs) {
		err = f.Errs[i]
	}
	return out, err
}
