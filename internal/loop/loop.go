// Package loop runs the periodic control cycle.
//
// Each cycle samples inputs once, polls every registered reaction in
// registration order and then advances the task scheduler. Loop is the
// event.Registrar bindings register with.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweeney/trigger-loop/internal/event"
)

// Sampler refreshes the inputs conditions read from.
type Sampler interface {
	Refresh() error
}

// Ticker is advanced once per cycle after the reactions ran.
type Ticker interface {
	Tick(now time.Time)
}

// Observer is called after every cycle with its result.
type Observer func(now time.Time, err error)

// Stats summarises the cycles run so far.
type Stats struct {
	Cycles    int64
	Failed    int64
	LastCycle time.Time
	LastError string
}

// Loop holds the registered reactions.
type Loop struct {
	mu        sync.Mutex
	pollers   []event.Poller
	observers []Observer
	stats     Stats

	sampler Sampler
	ticker  Ticker
	logger  *slog.Logger
}

// New creates a loop. sampler and ticker may be nil.
func New(sampler Sampler, ticker Ticker, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{sampler: sampler, ticker: ticker, logger: logger}
}

// Register adds p to the end of the poll order. It may be called from a
// reaction; the new poller is first polled on the following cycle.
func (l *Loop) Register(p event.Poller) {
	l.mu.Lock()
	l.pollers = append(l.pollers, p)
	l.mu.Unlock()
}

// Len returns the number of registered pollers.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pollers)
}

// Observe adds a function called after every cycle.
func (l *Loop) Observe(o Observer) {
	l.mu.Lock()
	l.observers = append(l.observers, o)
	l.mu.Unlock()
}

// Stats returns a copy of the cycle statistics.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Cycle runs one control cycle.
//
// The first reaction error stops the remaining reactions for this cycle and
// is returned. A sampler error alone does not stop anything: conditions over
// the inputs fail on their own, so their reactions keep their previous value.
// The ticker always runs.
func (l *Loop) Cycle(now time.Time) error {
	l.mu.Lock()
	pollers := l.pollers
	observers := l.observers
	l.mu.Unlock()

	var err error
	if l.sampler != nil {
		if serr := l.sampler.Refresh(); serr != nil {
			err = serr
		}
	}

	for i, p := range pollers {
		if perr := p.Poll(); perr != nil {
			err = fmt.Errorf("reaction %d: %w", i, perr)
			break
		}
	}

	if l.ticker != nil {
		l.ticker.Tick(now)
	}

	l.mu.Lock()
	l.stats.Cycles++
	l.stats.LastCycle = now
	if err != nil {
		l.stats.Failed++
		l.stats.LastError = err.Error()
	}
	l.mu.Unlock()

	for _, o := range observers {
		o(now, err)
	}
	return err
}

// Run cycles on every tick until ctx is done. Cycle errors are logged and
// the loop carries on.
func (l *Loop) Run(ctx context.Context, tick <-chan time.Time, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if err := l.Cycle(now()); err != nil {
				l.logger.Warn("cycle failed", "err", err)
			}
		}
	}
}
