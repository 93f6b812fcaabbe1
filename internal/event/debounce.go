package event

import (
	"fmt"
	"time"
)

// DebounceMode selects which transitions a Debouncer delays.
type DebounceMode string

const (
	// DebounceRising delays false->true; true is reported only after the
	// input has stayed true for the whole window.
	DebounceRising DebounceMode = "rising"
	// DebounceFalling delays true->false.
	DebounceFalling DebounceMode = "falling"
	// DebounceBoth delays both transitions.
	DebounceBoth DebounceMode = "both"
)

// ParseDebounceMode converts a config string to a DebounceMode.
// The empty string selects DebounceRising.
func ParseDebounceMode(s string) (DebounceMode, error) {
	switch DebounceMode(s) {
	case "":
		return DebounceRising, nil
	case DebounceRising, DebounceFalling, DebounceBoth:
		return DebounceMode(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDebounceMode, s)
}

// Debouncer suppresses input changes shorter than a time window.
//
// It holds a baseline level and the time the input last sat at that
// baseline. An input differing from the baseline is reported only once
// the window has elapsed since then. Not safe for concurrent use.
type Debouncer struct {
	window   time.Duration
	mode     DebounceMode
	now      func() time.Time
	baseline bool
	since    time.Time
}

// NewDebouncer creates a debouncer. now is the clock; nil means time.Now.
func NewDebouncer(window time.Duration, mode DebounceMode, now func() time.Time) (*Debouncer, error) {
	if window < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNegativeWindow, window)
	}
	mode, err := ParseDebounceMode(string(mode))
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	d := &Debouncer{
		window:   window,
		mode:     mode,
		now:      now,
		baseline: mode == DebounceFalling,
	}
	d.since = now()
	return d, nil
}

// Calculate feeds one raw sample and returns the filtered value.
func (d *Debouncer) Calculate(input bool) bool {
	t := d.now()
	if input == d.baseline {
		d.since = t
	}

	if t.Sub(d.since) < d.window {
		return d.baseline
	}

	if d.mode == DebounceBoth {
		d.baseline = input
		d.since = t
	}
	return input
}

// Window returns the configured window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Mode returns the configured mode.
func (d *Debouncer) Mode() DebounceMode {
	return d.mode
}
