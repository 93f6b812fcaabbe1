package loop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/trigger-loop/internal/event"
	"github.com/sweeney/trigger-loop/internal/gpio"
	"github.com/sweeney/trigger-loop/internal/task"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type pollFunc func() error

func (f pollFunc) Poll() error { return f() }

type countingTicker struct {
	ticks []time.Time
}

func (c *countingTicker) Tick(now time.Time) { c.ticks = append(c.ticks, now) }

var _ event.Registrar = (*Loop)(nil)

func TestCyclePollsInRegistrationOrder(t *testing.T) {
	l := New(nil, nil, quietLogger())
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		l.Register(pollFunc(func() error { order = append(order, i); return nil }))
	}

	require.NoError(t, l.Cycle(start))
	require.NoError(t, l.Cycle(start.Add(time.Second)))

	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, order)
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, int64(2), l.Stats().Cycles)
}

func TestCycleFailFastButStillTicks(t *testing.T) {
	ticker := &countingTicker{}
	l := New(nil, ticker, quietLogger())
	boom := errors.New("boom")
	ran := 0
	l.Register(pollFunc(func() error { ran++; return nil }))
	l.Register(pollFunc(func() error { return boom }))
	l.Register(pollFunc(func() error { ran++; return nil }))

	err := l.Cycle(start)
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "reaction 1: boom")
	assert.Equal(t, 1, ran, "reactions after the failing one are skipped")
	assert.Len(t, ticker.ticks, 1)

	st := l.Stats()
	assert.Equal(t, int64(1), st.Failed)
	assert.Equal(t, "reaction 1: boom", st.LastError)
}

func TestRegisterDuringCycleTakesEffectNextCycle(t *testing.T) {
	l := New(nil, nil, quietLogger())
	later := 0
	l.Register(pollFunc(func() error {
		l.Register(pollFunc(func() error { later++; return nil }))
		return nil
	}))

	require.NoError(t, l.Cycle(start))
	assert.Equal(t, 0, later)

	require.NoError(t, l.Cycle(start))
	assert.Equal(t, 1, later)
}

func TestObserverSeesEveryCycle(t *testing.T) {
	l := New(nil, nil, quietLogger())
	var seen []time.Time
	l.Observe(func(now time.Time, err error) {
		assert.NoError(t, err)
		seen = append(seen, now)
	})

	require.NoError(t, l.Cycle(start))
	require.NoError(t, l.Cycle(start.Add(100*time.Millisecond)))
	assert.Equal(t, []time.Time{start, start.Add(100 * time.Millisecond)}, seen)
}

func TestCycleSamplesInputsOnce(t *testing.T) {
	reader := gpio.NewFakeReader([]gpio.Sample{
		{"button": false},
		{"button": true},
		{"button": true},
		{"button": false},
	})
	inputs := gpio.NewInputs(reader)
	l := New(inputs, nil, quietLogger())

	presses := 0
	// Registered before the first sample: the first good poll is the baseline.
	event.New(l, inputs.Condition("button")).OnTrue(func() { presses++ })

	for i := 0; i < 4; i++ {
		require.NoError(t, l.Cycle(start.Add(time.Duration(i)*100*time.Millisecond)))
	}
	assert.Equal(t, 1, presses)
}

func TestSamplerFailurePreservesEdges(t *testing.T) {
	reader := gpio.NewFakeReader([]gpio.Sample{{"button": false}})
	inputs := gpio.NewInputs(reader)
	l := New(inputs, nil, quietLogger())
	require.NoError(t, inputs.Refresh())

	presses := 0
	event.New(l, inputs.Condition("button")).OnTrue(func() { presses++ })

	require.NoError(t, l.Cycle(start))

	reader.ReadError = errors.New("line busy")
	assert.Error(t, l.Cycle(start.Add(100*time.Millisecond)))

	reader.ReadError = nil
	reader.Samples = []gpio.Sample{{"button": true}}
	reader.Reset()
	require.NoError(t, l.Cycle(start.Add(200*time.Millisecond)))
	assert.Equal(t, 1, presses)
}

func TestTasksTimeOutBetweenPolls(t *testing.T) {
	now := start
	sched := task.NewScheduler(func() time.Time { return now }, nil)
	pulse, err := sched.Add(task.Config{Name: "pulse", Timeout: 150 * time.Millisecond})
	require.NoError(t, err)

	reader := gpio.NewFakeReader([]gpio.Sample{{"hold": true}})
	inputs := gpio.NewInputs(reader)
	l := New(inputs, sched, quietLogger())
	event.New(l, inputs.Condition("hold")).WhileTrueTask(pulse)

	for i := 0; i < 5; i++ {
		now = start.Add(time.Duration(i) * 100 * time.Millisecond)
		require.NoError(t, l.Cycle(now))
	}

	// Cycle 0 is the baseline (no sample at registration); starts at 100ms,
	// times out at 300ms, restarted at 400ms.
	c := sched.Counts()
	assert.Equal(t, 2, c.Started)
	assert.Equal(t, 1, c.TimedOut)
	assert.True(t, pulse.IsActive())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	l := New(nil, nil, quietLogger())
	cycles := make(chan struct{}, 10)
	l.Register(pollFunc(func() error { cycles <- struct{}{}; return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, tick, func() time.Time { return start }) }()

	tick <- start
	<-cycles
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
