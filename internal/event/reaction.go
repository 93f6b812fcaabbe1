package event

// Poller is anything a per-cycle loop can poll.
type Poller interface {
	Poll() error
}

// Registrar accepts pollers and polls each one once per cycle, in the order
// they were registered, for the life of the loop. There is no removal.
type Registrar interface {
	Register(p Poller)
}

// Dispatch decides what a reaction does for one poll, given the value seen
// on the previous poll and the value seen now.
type Dispatch func(previous, current bool)

// Reaction remembers the last value of a condition and dispatches an effect
// on every poll. It is the state machine every binding operator is built on.
type Reaction struct {
	cond     Condition
	dispatch Dispatch
	previous bool
	primed   bool
}

// NewReaction creates a reaction and records the condition's current value
// as the previous value. When that first evaluation fails the reaction
// starts unprimed and its first successful poll only records a baseline.
func NewReaction(cond Condition, dispatch Dispatch) *Reaction {
	r := &Reaction{cond: cond, dispatch: dispatch}
	if v, err := cond.Get(); err == nil {
		r.previous = v
		r.primed = true
	}
	return r
}

// Poll evaluates the condition, dispatches, then stores the value.
// On an evaluation error nothing is dispatched and the previous value is
// kept, so the next good poll still compares against the last good value.
func (r *Reaction) Poll() error {
	current, err := r.cond.Get()
	if err != nil {
		return err
	}
	if r.primed {
		r.dispatch(r.previous, current)
	}
	r.previous = current
	r.primed = true
	return nil
}

// Previous returns the value recorded by the last successful poll and
// whether any value has been recorded yet.
func (r *Reaction) Previous() (value, ok bool) {
	return r.previous, r.primed
}

func rising(previous, current bool) bool  { return !previous && current }
func falling(previous, current bool) bool { return previous && !current }

// edge returns the edge test for the given polarity: rising when onTrue,
// falling otherwise.
func edge(onTrue bool) func(previous, current bool) bool {
	if onTrue {
		return rising
	}
	return falling
}

// onEdge runs fn on the selected edge.
func onEdge(onTrue bool, fn func()) Dispatch {
	test := edge(onTrue)
	return func(previous, current bool) {
		if test(previous, current) {
			fn()
		}
	}
}

// whileLevel runs fn on every poll where the value equals level.
func whileLevel(level bool, fn func()) Dispatch {
	return func(_, current bool) {
		if current == level {
			fn()
		}
	}
}

// whileTask keeps t running on every poll at level and stops it once when
// the value leaves level.
func whileTask(level bool, t Task, interruptible bool) Dispatch {
	return func(previous, current bool) {
		if current == level {
			startIfInactive(t, interruptible)
			return
		}
		if previous == level {
			stopIfActive(t)
		}
	}
}

// whileOnceTask starts t on entering level and stops it on leaving.
func whileOnceTask(level bool, t Task, interruptible bool) Dispatch {
	return func(previous, current bool) {
		switch {
		case previous == current:
		case current == level:
			startIfInactive(t, interruptible)
		default:
			stopIfActive(t)
		}
	}
}

// onChange passes every new value to fn.
func onChange(fn func(bool)) Dispatch {
	return func(previous, current bool) {
		if previous != current {
			fn(current)
		}
	}
}
