package event

// Task is an externally scheduled unit of work that bindings start and stop.
//
// Start on an already active task and Stop on an inactive one must be
// no-ops; the continuous bindings rely on that while still guarding with
// IsActive themselves.
type Task interface {
	IsActive() bool
	Start(interruptible bool)
	Stop()
}

// BindOption configures a task binding.
type BindOption func(*bindOptions)

type bindOptions struct {
	interruptible bool
}

// NotInterruptible starts the bound task as non-interruptible, so another
// task needing the same resources cannot preempt it.
func NotInterruptible() BindOption {
	return func(o *bindOptions) { o.interruptible = false }
}

// Interruptible sets the interruptible flag explicitly.
func Interruptible(v bool) BindOption {
	return func(o *bindOptions) { o.interruptible = v }
}

func applyBindOptions(opts []BindOption) bindOptions {
	o := bindOptions{interruptible: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func startIfInactive(t Task, interruptible bool) {
	if !t.IsActive() {
		t.Start(interruptible)
	}
}

func stopIfActive(t Task) {
	if t.IsActive() {
		t.Stop()
	}
}

func toggle(t Task, interruptible bool) {
	if t.IsActive() {
		t.Stop()
		return
	}
	t.Start(interruptible)
}
