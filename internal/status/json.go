package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	RunID         string          `json:"run_id"`
	Ready         bool            `json:"ready"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Inputs        map[string]bool `json:"inputs"`
	InputError    string          `json:"input_error,omitempty"`
	Tasks         []TaskJSON      `json:"tasks"`
	Counts        CountsJSON      `json:"task_counts"`
	Loop          LoopJSON        `json:"loop"`
	Config        ConfigJSON      `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// TaskJSON describes one task.
type TaskJSON struct {
	Name          string `json:"name"`
	Active        bool   `json:"active"`
	Interruptible bool   `json:"interruptible,omitempty"`
	StartedAt     string `json:"started_at,omitempty"`
}

// CountsJSON is the JSON representation of task lifecycle counts.
type CountsJSON struct {
	Started     int `json:"started"`
	Cancelled   int `json:"cancelled"`
	TimedOut    int `json:"timed_out"`
	Interrupted int `json:"interrupted"`
	Refused     int `json:"refused"`
}

// LoopJSON reports control loop progress.
type LoopJSON struct {
	Cycles    int64  `json:"cycles"`
	Failed    int64  `json:"failed"`
	LastCycle string `json:"last_cycle,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Path        string `json:"path"`
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Inputs      int    `json:"inputs"`
	Tasks       int    `json:"tasks"`
	Bindings    int    `json:"bindings"`
}

func buildInner(snap Snapshot) StatusInner {
	inputs := snap.Inputs
	if inputs == nil {
		inputs = map[string]bool{}
	}

	tasks := make([]TaskJSON, 0, len(snap.Tasks))
	for _, ts := range snap.Tasks {
		tj := TaskJSON{Name: ts.Name, Active: ts.Active}
		if ts.Active {
			tj.Interruptible = ts.Interruptible
			tj.StartedAt = ts.StartedAt.UTC().Format(time.RFC3339)
		}
		tasks = append(tasks, tj)
	}

	lj := LoopJSON{
		Cycles:    snap.Loop.Cycles,
		Failed:    snap.Loop.Failed,
		LastError: snap.Loop.LastError,
	}
	if !snap.Loop.LastCycle.IsZero() {
		lj.LastCycle = snap.Loop.LastCycle.UTC().Format(time.RFC3339)
	}

	return StatusInner{
		RunID:         snap.RunID,
		Ready:         snap.Ready(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Inputs:        inputs,
		InputError:    snap.InputError,
		Tasks:         tasks,
		Counts: CountsJSON{
			Started:     snap.Counts.Started,
			Cancelled:   snap.Counts.Cancelled,
			TimedOut:    snap.Counts.TimedOut,
			Interrupted: snap.Counts.Interrupted,
			Refused:     snap.Counts.Refused,
		},
		Loop: lj,
		Config: ConfigJSON{
			Path:        snap.Config.Path,
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Inputs:      snap.Config.Inputs,
			Tasks:       snap.Config.Tasks,
			Bindings:    snap.Config.Bindings,
		},
	}
}

// FormatJSON returns the indented JSON status for the web endpoint (no
// event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
