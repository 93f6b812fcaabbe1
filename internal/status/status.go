// Package status provides a thread-safe status tracker for the trigger-loop
// daemon. The control loop writes to it once per cycle; HTTP handlers and
// MQTT heartbeats read snapshots.
package status

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/trigger-loop/internal/loop"
	"github.com/sweeney/trigger-loop/internal/task"
)

// Config contains daemon configuration for display.
type Config struct {
	Path        string
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Inputs      int
	Tasks       int
	Bindings    int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	RunID         string
	Inputs        map[string]bool
	InputError    string
	Tasks         []task.State
	Counts        task.Counts
	Loop          loop.Stats
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one cycle ran with readable inputs.
func (s Snapshot) Ready() bool {
	return s.Loop.Cycles > 0 && s.InputError == ""
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config. Every
// tracker gets a fresh run id.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			RunID:     uuid.NewString(),
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the state at the end of a cycle. inputErr is the last
// input read error, if any.
func (t *Tracker) Update(inputs map[string]bool, inputErr error, tasks []task.State, counts task.Counts, stats loop.Stats) {
	t.mu.Lock()
	t.snap.Inputs = maps.Clone(inputs)
	t.snap.InputError = ""
	if inputErr != nil {
		t.snap.InputError = inputErr.Error()
	}
	t.snap.Tasks = slices.Clone(tasks)
	t.snap.Counts = counts
	t.snap.Loop = stats
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Inputs = maps.Clone(t.snap.Inputs)
	s.Tasks = slices.Clone(t.snap.Tasks)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
