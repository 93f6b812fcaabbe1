// Package binding turns configured bindings into registered reactions.
package binding

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/trigger-loop/internal/config"
	"github.com/sweeney/trigger-loop/internal/event"
	"github.com/sweeney/trigger-loop/internal/expr"
	"github.com/sweeney/trigger-loop/internal/gpio"
	"github.com/sweeney/trigger-loop/internal/task"
)

type operator func(e *event.Event, t event.Task, opts ...event.BindOption) *event.Event

var operators = map[string]operator{
	"on_true":          (*event.Event).OnTrueTask,
	"on_false":         (*event.Event).OnFalseTask,
	"while_true":       (*event.Event).WhileTrueTask,
	"while_true_once":  (*event.Event).WhileTrueOnce,
	"while_false":      (*event.Event).WhileFalseTask,
	"while_false_once": (*event.Event).WhileFalseOnce,
	"toggle_on_true":   (*event.Event).ToggleOnTrue,
	"toggle_on_false":  (*event.Event).ToggleOnFalse,
	"cancel_on_true": func(e *event.Event, t event.Task, _ ...event.BindOption) *event.Event {
		return e.CancelOnTrue(t)
	},
	"cancel_on_false": func(e *event.Event, t event.Task, _ ...event.BindOption) *event.Event {
		return e.CancelOnFalse(t)
	},
}

// Option configures Build.
type Option func(*options)

type options struct {
	now    func() time.Time
	logger *slog.Logger
}

// WithClock sets the clock debouncers read.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Build adds cfg's tasks to sched, then compiles every binding against
// inputs and registers it on reg. It returns the number of reactions
// registered. cfg is expected to have passed Validate; Build still reports
// what it cannot assemble.
func Build(cfg *config.Config, reg event.Registrar, inputs *gpio.Inputs, sched *task.Scheduler, opts ...Option) (int, error) {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	for _, tc := range cfg.Tasks {
		if _, err := sched.Add(task.Config{Name: tc.Name, Timeout: tc.Timeout, Requires: tc.Requires}); err != nil {
			return 0, fmt.Errorf("task %q: %w", tc.Name, err)
		}
	}

	env, err := expr.NewEnv(cfg.InputNames())
	if err != nil {
		return 0, err
	}

	n := 0
	for i, b := range cfg.Bindings {
		op, ok := operators[b.Operator]
		if !ok {
			return n, fmt.Errorf("bindings[%d]: unknown operator %q", i, b.Operator)
		}
		t, ok := sched.Get(b.Task)
		if !ok {
			return n, fmt.Errorf("bindings[%d]: unknown task %q", i, b.Task)
		}
		x, err := env.Compile(b.When)
		if err != nil {
			return n, fmt.Errorf("bindings[%d]: %w", i, err)
		}
		mode, err := event.ParseDebounceMode(b.DebounceMode)
		if err != nil {
			return n, fmt.Errorf("bindings[%d]: %w", i, err)
		}

		ev := event.New(reg, x.Condition(inputs)).WithClock(o.now)
		if b.Debounce > 0 {
			if ev, err = ev.DebounceMode(b.Debounce, mode); err != nil {
				return n, fmt.Errorf("bindings[%d]: %w", i, err)
			}
		}
		op(ev, t, event.Interruptible(b.IsInterruptible()))
		n++

		o.logger.Debug("binding registered",
			"when", x.String(),
			"operator", b.Operator,
			"task", b.Task,
			"debounce", b.Debounce,
		)
	}
	return n, nil
}
