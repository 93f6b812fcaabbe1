package event

import (
	"errors"
	"time"
)

// fakeRegistrar stores pollers and polls them on demand, in order.
type fakeRegistrar struct {
	pollers []Poller
}

func (f *fakeRegistrar) Register(p Poller) {
	f.pollers = append(f.pollers, p)
}

func (f *fakeRegistrar) pollAll() error {
	for _, p := range f.pollers {
		if err := p.Poll(); err != nil {
			return err
		}
	}
	return nil
}

// script is a condition whose value is set by the test between polls.
type script struct {
	value bool
	err   error
	calls int
}

func (s *script) Get() (bool, error) {
	s.calls++
	return s.value, s.err
}

// fakeTask records lifecycle calls. Start on an active task is a no-op.
type fakeTask struct {
	active        bool
	starts        int
	stops         int
	interruptible []bool
}

func (f *fakeTask) IsActive() bool { return f.active }

func (f *fakeTask) Start(interruptible bool) {
	f.starts++
	f.interruptible = append(f.interruptible, interruptible)
	f.active = true
}

func (f *fakeTask) Stop() {
	f.stops++
	f.active = false
}

// finish simulates the task ending on its own between polls.
func (f *fakeTask) finish() { f.active = false }

var errSensor = errors.New("sensor offline")

// stepClock returns a clock advanced manually by the test.
type stepClock struct {
	t time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) now() time.Time { return c.t }

func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// run feeds seq through src one poll at a time and reports, per poll
// (1-based), whether hit changed during that poll.
func run(reg *fakeRegistrar, src *script, seq []bool, hit func() int) []int {
	var polls []int
	for i, v := range seq {
		before := hit()
		src.value = v
		if err := reg.pollAll(); err != nil {
			panic(err)
		}
		if hit() != before {
			polls = append(polls, i+1)
		}
	}
	return polls
}
