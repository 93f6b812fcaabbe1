package mqtt

import (
	"log/slog"
	"time"

	"github.com/sweeney/trigger-loop/internal/task"
)

// Notifier forwards task scheduler notifications to a Publisher.
type Notifier struct {
	pub    Publisher
	logger *slog.Logger
}

var _ task.Notifier = (*Notifier)(nil)

// NewNotifier creates a Notifier. logger may be nil.
func NewNotifier(pub Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, logger: logger}
}

// TaskStarted publishes a STARTED event.
func (n *Notifier) TaskStarted(name string, interruptible bool, at time.Time) {
	n.logger.Info("task started", "task", name, "interruptible", interruptible)
	n.publish(TaskEvent{
		Timestamp:     at,
		Task:          name,
		Event:         EventStarted,
		Interruptible: interruptible,
	})
}

// TaskStopped publishes a STOPPED event.
func (n *Notifier) TaskStopped(name string, reason task.StopReason, ran time.Duration, at time.Time) {
	n.logger.Info("task stopped", "task", name, "reason", reason, "ran", ran)
	n.publish(TaskEvent{
		Timestamp: at,
		Task:      name,
		Event:     EventStopped,
		Reason:    reason,
		Ran:       ran,
	})
}

func (n *Notifier) publish(e TaskEvent) {
	if err := n.pub.PublishTask(e); err != nil {
		n.logger.Warn("publish task event", "task", e.Task, "event", e.Event, "err", err)
	}
}
