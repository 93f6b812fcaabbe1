//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

type requestedLine struct {
	cfg  Line
	line *gpiocdev.Line
}

// RealReader reads inputs from actual hardware using the Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines []requestedLine
}

// NewRealReader opens chip and requests every line as an input.
func NewRealReader(chip string, lines []Line) (*RealReader, error) {
	if chip == "" {
		chip = DefaultChip
	}
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}

	r := &RealReader{chip: c}
	for _, l := range lines {
		// Input with pull-down to match Pi boot defaults.
		line, err := c.RequestLine(l.Offset, gpiocdev.AsInput, gpiocdev.WithPullDown, gpiocdev.WithConsumer("trigger-loop"))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request %s line %d: %w", l.Name, l.Offset, err)
		}
		r.lines = append(r.lines, requestedLine{cfg: l, line: line})
	}
	return r, nil
}

// Read returns the logical level of every line.
func (r *RealReader) Read() (Sample, error) {
	s := make(Sample, len(r.lines))
	for _, l := range r.lines {
		raw, err := l.line.Value()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", l.cfg.Name, err)
		}
		s[l.cfg.Name] = logical(raw, l.cfg.ActiveLow)
	}
	return s, nil
}

// Close releases GPIO resources.
// Lines are reconfigured to input with pull-down (the Pi boot default)
// before closing so attached hardware sees a clean state across reboot.
func (r *RealReader) Close() error {
	var errs []error
	for _, l := range r.lines {
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s: %w", l.cfg.Name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", l.cfg.Name, err))
		}
	}
	r.lines = nil
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}
	return errors.Join(errs...)
}
