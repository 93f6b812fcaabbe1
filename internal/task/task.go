// Package task provides the tasks that bindings start and stop.
//
// A Scheduler owns a fixed set of named tasks. Tasks may claim resources;
// starting a task whose resource is held by an interruptible task stops the
// holder first, while a non-interruptible holder blocks the start. Tasks with
// a timeout end on their own during Tick. The Scheduler is owned by the
// control loop goroutine and is not safe for concurrent use.
package task

import (
	"errors"
	"fmt"
	"time"
)

// StopReason explains why a task stopped.
type StopReason string

const (
	ReasonCancelled   StopReason = "CANCELLED"
	ReasonTimeout     StopReason = "TIMEOUT"
	ReasonInterrupted StopReason = "INTERRUPTED"
)

var (
	// ErrDuplicateTask is returned by Add for a name already in use.
	ErrDuplicateTask = errors.New("duplicate task")
	// ErrEmptyName is returned by Add for a task without a name.
	ErrEmptyName = errors.New("empty task name")
)

// Notifier is told about every start and stop.
// Implementations must not block; they are called from the control loop.
type Notifier interface {
	TaskStarted(name string, interruptible bool, at time.Time)
	TaskStopped(name string, reason StopReason, ran time.Duration, at time.Time)
}

// Config describes one task.
type Config struct {
	Name     string
	Timeout  time.Duration // 0 runs until stopped
	Requires []string
}

// Task is a named unit of work tracked by a Scheduler.
type Task struct {
	s             *Scheduler
	cfg           Config
	active        bool
	interruptible bool
	startedAt     time.Time
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.cfg.Name
}

// IsActive reports whether the task is running.
func (t *Task) IsActive() bool {
	return t.active
}

// Start runs the task. It is a no-op when the task is already active or
// when a required resource is held by a non-interruptible task.
func (t *Task) Start(interruptible bool) {
	t.s.start(t, interruptible)
}

// Stop cancels the task. Stopping an inactive task is a no-op.
func (t *Task) Stop() {
	t.s.stop(t, ReasonCancelled)
}

// Counts tallies lifecycle transitions since startup.
type Counts struct {
	Started     int
	Cancelled   int
	TimedOut    int
	Interrupted int
	Refused     int
}

// State is a point-in-time view of one task.
type State struct {
	Name          string
	Active        bool
	Interruptible bool
	StartedAt     time.Time
}

// Scheduler owns tasks and arbitrates their resources.
type Scheduler struct {
	tasks    map[string]*Task
	order    []*Task
	owners   map[string]*Task
	now      func() time.Time
	notifier Notifier
	counts   Counts
}

// NewScheduler creates an empty scheduler. now is the clock (nil means
// time.Now) and notifier may be nil.
func NewScheduler(now func() time.Time, notifier Notifier) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		tasks:    make(map[string]*Task),
		owners:   make(map[string]*Task),
		now:      now,
		notifier: notifier,
	}
}

// Add registers a task.
func (s *Scheduler) Add(cfg Config) (*Task, error) {
	if cfg.Name == "" {
		return nil, ErrEmptyName
	}
	if _, ok := s.tasks[cfg.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTask, cfg.Name)
	}
	t := &Task{s: s, cfg: cfg}
	s.tasks[cfg.Name] = t
	s.order = append(s.order, t)
	return t, nil
}

// Get looks a task up by name.
func (s *Scheduler) Get(name string) (*Task, bool) {
	t, ok := s.tasks[name]
	return t, ok
}

// Tick ends tasks whose timeout has elapsed. The loop calls it once per
// cycle after polling bindings.
func (s *Scheduler) Tick(now time.Time) {
	for _, t := range s.order {
		if t.active && t.cfg.Timeout > 0 && now.Sub(t.startedAt) >= t.cfg.Timeout {
			s.end(t, ReasonTimeout, now)
		}
	}
}

// StopAll cancels every active task.
func (s *Scheduler) StopAll() {
	for _, t := range s.order {
		s.stop(t, ReasonCancelled)
	}
}

// Active returns the names of running tasks in the order they were added.
func (s *Scheduler) Active() []string {
	var names []string
	for _, t := range s.order {
		if t.active {
			names = append(names, t.cfg.Name)
		}
	}
	return names
}

// States returns a view of every task in the order they were added.
func (s *Scheduler) States() []State {
	out := make([]State, 0, len(s.order))
	for _, t := range s.order {
		out = append(out, State{
			Name:          t.cfg.Name,
			Active:        t.active,
			Interruptible: t.interruptible,
			StartedAt:     t.startedAt,
		})
	}
	return out
}

// Counts returns the lifecycle tallies.
func (s *Scheduler) Counts() Counts {
	return s.counts
}

func (s *Scheduler) start(t *Task, interruptible bool) {
	if t.active {
		return
	}

	var preempt []*Task
	for _, res := range t.cfg.Requires {
		owner := s.owners[res]
		if owner == nil || owner == t {
			continue
		}
		if !owner.interruptible {
			s.counts.Refused++
			return
		}
		preempt = append(preempt, owner)
	}

	now := s.now()
	for _, owner := range preempt {
		if owner.active {
			s.end(owner, ReasonInterrupted, now)
		}
	}

	t.active = true
	t.interruptible = interruptible
	t.startedAt = now
	for _, res := range t.cfg.Requires {
		s.owners[res] = t
	}
	s.counts.Started++
	if s.notifier != nil {
		s.notifier.TaskStarted(t.cfg.Name, interruptible, now)
	}
}

func (s *Scheduler) stop(t *Task, reason StopReason) {
	if !t.active {
		return
	}
	s.end(t, reason, s.now())
}

func (s *Scheduler) end(t *Task, reason StopReason, now time.Time) {
	t.active = false
	for _, res := range t.cfg.Requires {
		if s.owners[res] == t {
			delete(s.owners, res)
		}
	}

	switch reason {
	case ReasonCancelled:
		s.counts.Cancelled++
	case ReasonTimeout:
		s.counts.TimedOut++
	case ReasonInterrupted:
		s.counts.Interrupted++
	}
	if s.notifier != nil {
		s.notifier.TaskStopped(t.cfg.Name, reason, now.Sub(t.startedAt), now)
	}
}
