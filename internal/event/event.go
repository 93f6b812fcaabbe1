package event

import (
	"fmt"
	"reflect"
	"time"
)

// Event is a condition that bindings can be attached to.
//
// Every binding method creates a Reaction, registers it with the Event's
// Registrar straight away and returns the same Event so bindings chain:
//
//	event.New(loop, button).OnTrue(beep).WhileTrueTask(intake)
//
// Composition (And, Or, Negate, Debounce) returns a new Event on the same
// Registrar with no reactions of its own.
type Event struct {
	cond Condition
	reg  Registrar
	now  func() time.Time
}

// New returns an Event for cond whose bindings register with reg.
// A nil cond gives an Event that is always false. New panics if reg is nil.
func New(reg Registrar, cond Condition) *Event {
	if reg == nil {
		panic(fmt.Errorf("event: New: %w", ErrNilRegistrar))
	}
	if cond == nil {
		cond = Never
	}
	return &Event{cond: cond, reg: reg, now: time.Now}
}

// WithClock returns a copy of e whose debounce filters read time from now.
// Existing bindings on e are unaffected.
func (e *Event) WithClock(now func() time.Time) *Event {
	if now == nil {
		now = time.Now
	}
	return &Event{cond: e.cond, reg: e.reg, now: now}
}

// Get evaluates the underlying condition.
func (e *Event) Get() (bool, error) {
	return e.cond.Get()
}

func (e *Event) derive(cond Condition) *Event {
	return &Event{cond: cond, reg: e.reg, now: e.now}
}

// And returns an Event true when both e and other are true.
// other is not evaluated when e is false.
func (e *Event) And(other Condition) *Event {
	return e.derive(And(e.cond, other))
}

// Or returns an Event true when either e or other is true.
// other is not evaluated when e is true.
func (e *Event) Or(other Condition) *Event {
	return e.derive(Or(e.cond, other))
}

// Negate returns an Event true when e is false.
func (e *Event) Negate() *Event {
	return e.derive(Not(e.cond))
}

// Debounce filters rising edges shorter than window.
func (e *Event) Debounce(window time.Duration) (*Event, error) {
	return e.DebounceMode(window, DebounceRising)
}

// DebounceMode filters transitions shorter than window in the given mode.
// Each call gets its own filter.
func (e *Event) DebounceMode(window time.Duration, mode DebounceMode) (*Event, error) {
	d, err := NewDebouncer(window, mode, e.now)
	if err != nil {
		return nil, fmt.Errorf("debounce: %w", err)
	}
	src := e.cond
	return e.derive(ConditionFunc(func() (bool, error) {
		v, err := src.Get()
		if err != nil {
			return false, err
		}
		return d.Calculate(v), nil
	})), nil
}

func (e *Event) bind(dispatch Dispatch) *Event {
	e.reg.Register(NewReaction(e.cond, dispatch))
	return e
}

func requireCallback(op string, missing bool) {
	if missing {
		panic(fmt.Errorf("event: %s: %w", op, ErrNilCallback))
	}
}

func requireTask(op string, t Task) {
	if t == nil || isNilPointer(t) {
		panic(fmt.Errorf("event: %s: %w", op, ErrNilTask))
	}
}

// isNilPointer catches a nil pointer stored in a non-nil Task interface.
func isNilPointer(t Task) bool {
	v := reflect.ValueOf(t)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// OnTrue runs fn once on each false->true transition.
func (e *Event) OnTrue(fn func()) *Event {
	requireCallback("OnTrue", fn == nil)
	return e.bind(onEdge(true, fn))
}

// OnFalse runs fn once on each true->false transition.
func (e *Event) OnFalse(fn func()) *Event {
	requireCallback("OnFalse", fn == nil)
	return e.bind(onEdge(false, fn))
}

// WhileTrue runs fn on every poll while e is true.
func (e *Event) WhileTrue(fn func()) *Event {
	requireCallback("WhileTrue", fn == nil)
	return e.bind(whileLevel(true, fn))
}

// WhileFalse runs fn on every poll while e is false.
func (e *Event) WhileFalse(fn func()) *Event {
	requireCallback("WhileFalse", fn == nil)
	return e.bind(whileLevel(false, fn))
}

// OnChange calls fn with the new value whenever it differs from the last poll.
func (e *Event) OnChange(fn func(bool)) *Event {
	requireCallback("OnChange", fn == nil)
	return e.bind(onChange(fn))
}

// OnTrueTask starts t on each false->true transition unless it is active.
func (e *Event) OnTrueTask(t Task, opts ...BindOption) *Event {
	requireTask("OnTrueTask", t)
	o := applyBindOptions(opts)
	return e.bind(onEdge(true, func() { startIfInactive(t, o.interruptible) }))
}

// OnFalseTask starts t on each true->false transition unless it is active.
func (e *Event) OnFalseTask(t Task, opts ...BindOption) *Event {
	requireTask("OnFalseTask", t)
	o := applyBindOptions(opts)
	return e.bind(onEdge(false, func() { startIfInactive(t, o.interruptible) }))
}

// WhileTrueTask starts t on every poll while e is true and it is not
// running, so a task that finished on its own is started again. t is
// stopped once when e becomes false.
func (e *Event) WhileTrueTask(t Task, opts ...BindOption) *Event {
	requireTask("WhileTrueTask", t)
	o := applyBindOptions(opts)
	return e.bind(whileTask(true, t, o.interruptible))
}

// WhileFalseTask mirrors WhileTrueTask.
func (e *Event) WhileFalseTask(t Task, opts ...BindOption) *Event {
	requireTask("WhileFalseTask", t)
	o := applyBindOptions(opts)
	return e.bind(whileTask(false, t, o.interruptible))
}

// WhileTrueOnce starts t on the rising edge and stops it on the falling
// edge. A task that finishes on its own while e stays true is not restarted.
func (e *Event) WhileTrueOnce(t Task, opts ...BindOption) *Event {
	requireTask("WhileTrueOnce", t)
	o := applyBindOptions(opts)
	return e.bind(whileOnceTask(true, t, o.interruptible))
}

// WhileFalseOnce mirrors WhileTrueOnce.
func (e *Event) WhileFalseOnce(t Task, opts ...BindOption) *Event {
	requireTask("WhileFalseOnce", t)
	o := applyBindOptions(opts)
	return e.bind(whileOnceTask(false, t, o.interruptible))
}

// ToggleOnTrue stops t if active and starts it otherwise, on each rising edge.
func (e *Event) ToggleOnTrue(t Task, opts ...BindOption) *Event {
	requireTask("ToggleOnTrue", t)
	o := applyBindOptions(opts)
	return e.bind(onEdge(true, func() { toggle(t, o.interruptible) }))
}

// ToggleOnFalse toggles t on each falling edge.
func (e *Event) ToggleOnFalse(t Task, opts ...BindOption) *Event {
	requireTask("ToggleOnFalse", t)
	o := applyBindOptions(opts)
	return e.bind(onEdge(false, func() { toggle(t, o.interruptible) }))
}

// CancelOnTrue stops t on each rising edge.
func (e *Event) CancelOnTrue(t Task) *Event {
	requireTask("CancelOnTrue", t)
	return e.bind(onEdge(true, t.Stop))
}

// CancelOnFalse stops t on each falling edge.
func (e *Event) CancelOnFalse(t Task) *Event {
	requireTask("CancelOnFalse", t)
	return e.bind(onEdge(false, t.Stop))
}
