// Package mqtt publishes task lifecycle and system events, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/trigger-loop/internal/task"
)

// Topic is the MQTT topic for task lifecycle events.
const Topic = "trigger/tasks/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "trigger/system"

// Task event names.
const (
	EventStarted = "STARTED"
	EventStopped = "STOPPED"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishTask sends a task event to the broker. It must not block the
	// control loop; failures are returned or logged, never fatal.
	PublishTask(event TaskEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// TaskEvent is a task start or stop.
type TaskEvent struct {
	Timestamp     time.Time
	Task          string
	Event         string          // EventStarted or EventStopped
	Interruptible bool            // starts only
	Reason        task.StopReason // stops only
	Ran           time.Duration   // stops only
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for task events.
type Payload struct {
	Task TaskPayload `json:"task"`
}

// TaskPayload contains the task event details.
type TaskPayload struct {
	Timestamp     string `json:"timestamp"`
	Name          string `json:"name"`
	Event         string `json:"event"`
	Interruptible *bool  `json:"interruptible,omitempty"`
	Reason        string `json:"reason,omitempty"`
	RanMs         *int64 `json:"ran_ms,omitempty"`
}

// FormatPayload creates the JSON payload for a task event.
func FormatPayload(event TaskEvent) ([]byte, error) {
	p := TaskPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Name:      event.Task,
		Event:     event.Event,
	}
	switch event.Event {
	case EventStarted:
		interruptible := event.Interruptible
		p.Interruptible = &interruptible
	case EventStopped:
		p.Reason = string(event.Reason)
		ran := event.Ran.Milliseconds()
		p.RanMs = &ran
	}
	return json.Marshal(Payload{Task: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
