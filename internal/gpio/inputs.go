package gpio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sweeney/trigger-loop/internal/event"
)

var (
	// ErrNoSample is returned by input conditions before the first Refresh.
	ErrNoSample = errors.New("no sample read yet")
	// ErrUnknownInput is returned for a name missing from the sample.
	ErrUnknownInput = errors.New("unknown input")
)

// Inputs holds one sample per control cycle so every condition evaluated
// during that cycle sees the same values.
//
// When a read fails the error is kept and every input condition fails with
// it until the next successful Refresh.
type Inputs struct {
	reader Reader
	sample Sample
	err    error
}

// NewInputs wraps reader.
func NewInputs(reader Reader) *Inputs {
	return &Inputs{reader: reader, err: ErrNoSample}
}

// Refresh reads a new sample.
func (in *Inputs) Refresh() error {
	s, err := in.reader.Read()
	if err != nil {
		in.err = fmt.Errorf("gpio read: %w", err)
		return in.err
	}
	in.sample = s
	in.err = nil
	return nil
}

// Value returns the level of one input from the current sample.
func (in *Inputs) Value(name string) (bool, error) {
	if in.err != nil {
		return false, in.err
	}
	v, ok := in.sample[name]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownInput, name)
	}
	return v, nil
}

// Sample returns a copy of the current sample, or the last read error.
func (in *Inputs) Sample() (Sample, error) {
	if in.err != nil {
		return nil, in.err
	}
	out := make(Sample, len(in.sample))
	for k, v := range in.sample {
		out[k] = v
	}
	return out, nil
}

// Names returns the input names of the current sample, sorted.
func (in *Inputs) Names() []string {
	names := make([]string, 0, len(in.sample))
	for k := range in.sample {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Condition returns a condition reading one input.
func (in *Inputs) Condition(name string) event.Condition {
	return event.FuncE(func() (bool, error) {
		return in.Value(name)
	})
}
