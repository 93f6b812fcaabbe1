package mqtt

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// BacklogSize is the number of messages kept while disconnected.
const BacklogSize = 256

// Options configures a RealPublisher.
type Options struct {
	Broker   string // e.g. "tcp://localhost:1883"
	ClientID string // a random suffix is appended
	Logger   *slog.Logger
	Now      func() time.Time
}

// RealPublisher publishes to an actual MQTT broker.
//
// Task events never wait on the network: while connected they are handed to
// paho and the token is checked in the background, otherwise they are queued
// and replayed in order on reconnect.
type RealPublisher struct {
	client paho.Client
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending *backlog
	seen    bool // connected at least once
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.ClientID == "" {
		o.ClientID = "trigger-loop"
	}
	p := &RealPublisher{
		logger:  o.Logger.With("broker", o.Broker),
		now:     o.Now,
		pending: newBacklog(BacklogSize),
	}

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: o.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID + "-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("mqtt connection lost", "err", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// paho keeps retrying; until then messages go to the backlog.
		p.logger.Warn("mqtt broker not reachable yet, retrying in background")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// PublishTask queues a task event for delivery. It does not block.
func (p *RealPublisher) PublishTask(event TaskEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1, not retained
	p.send(queued{topic: Topic, payload: payload, qos: 1})
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
// Retained events (STARTUP, SHUTDOWN) wait for the broker to acknowledge
// them; others are handled like task events and never block.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	msg := queued{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}

	if !event.Retained {
		p.send(msg)
		return nil
	}
	if p.queueIfDisconnected(msg) {
		return nil
	}

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}

	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	left := p.pending.len()
	p.mu.Unlock()
	if left > 0 {
		p.logger.Warn("closing with undelivered messages", "count", left)
	}
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) send(msg queued) {
	if p.queueIfDisconnected(msg) {
		return
	}
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			p.logger.Warn("publish timeout", "topic", msg.topic)
			return
		}
		if err := token.Error(); err != nil {
			p.logger.Warn("publish failed", "topic", msg.topic, "err", err)
		}
	}()
}

// queueIfDisconnected adds msg to the backlog unless the client is
// connected. The check and the push happen under p.mu, which onConnect also
// holds while draining, so a queued message is always replayed.
func (p *RealPublisher) queueIfDisconnected(msg queued) bool {
	p.mu.Lock()
	if p.IsConnected() {
		p.mu.Unlock()
		return false
	}
	first := p.pending.push(msg)
	p.mu.Unlock()
	if first {
		p.logger.Warn("mqtt backlog full, dropping oldest", "capacity", BacklogSize)
	}
	return true
}

// onConnect runs on every connection. It replays the backlog and, after the
// first connection, announces the reconnect.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	msgs, dropped := p.pending.drain()
	again := p.seen
	p.seen = true
	p.mu.Unlock()

	p.logger.Info("mqtt connected", "replay", len(msgs), "dropped", dropped)
	for _, m := range msgs {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	if !again {
		return
	}

	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "RECONNECTED",
	})
	if err != nil {
		return
	}
	c.Publish(TopicSystem, 1, false, payload)
}
