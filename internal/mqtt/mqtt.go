// Package mqtt publishes irrigation decisions and lifecycle events to a broker.
package mqtt

import (
	"encoding/json"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

// Topic is the MQTT topic for cycle events.
const Topic = "garden/irrigator/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "garden/irrigator/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a cycle event to the broker.
	// Returns error if publishing fails (should not stop the cycle).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Irrigation IrrigationPayload `json:"irrigation"`
}

// IrrigationPayload contains the cycle event details.
type IrrigationPayload struct {
	Timestamp   string    `json:"timestamp"`
	Event       string    `json:"event"`
	Cycle       uint64    `json:"cycle"`
	Decision    string    `json:"decision,omitempty"`
	PumpOnMs    int64     `json:"pump_on_ms,omitempty"`
	Readings    *Readings `json:"readings,omitempty"`
	MinutesLeft uint32    `json:"minutes_left,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Readings carries the raw 0-1023 sensor values.
type Readings struct {
	Water    uint16 `json:"water"`
	Moisture uint16 `json:"moisture"`
}

// FormatPayload creates the JSON payload for a cycle event.
func FormatPayload(event logic.Event) ([]byte, error) {
	p := IrrigationPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		Cycle:     event.Cycle,
	}
	switch event.Type {
	case logic.EventDecision:
		p.Decision = string(event.Decision)
		p.PumpOnMs = event.PumpOn.Milliseconds()
		p.Readings = &Readings{Water: event.Sample.Water, Moisture: event.Sample.Moisture}
	case logic.EventCountdownError:
		p.MinutesLeft = event.MinutesLeft
		if event.Err != nil {
			p.Error = event.Err.Error()
		}
	}
	return json.Marshal(Payload{Irrigation: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
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

// DefaultQueueSize is the number of events an Observer holds while the
// broker is slow.
const DefaultQueueSize = 16

// Observer forwards decisions and countdown errors to a Publisher from its
// own goroutine, so Observe never waits on the broker. Events that arrive
// while the queue is full are dropped. Publish failures are logged and dropped.
type Observer struct {
	pub   Publisher
	queue chan logic.Event
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewObserver starts an Observer publishing to p. size <= 0 selects
// DefaultQueueSize.
func NewObserver(p Publisher, size int) *Observer {
	if size <= 0 {
		size = DefaultQueueSize
	}
	o := &Observer{
		pub:   p,
		queue: make(chan logic.Event, size),
		done:  make(chan struct{}),
	}
	go o.run()
	return o
}

// Observe queues e if it is a DECISION or COUNTDOWN_ERROR event.
func (o *Observer) Observe(e logic.Event) {
	if e.Type != logic.EventDecision && e.Type != logic.EventCountdownError {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.queue <- e:
	default:
		log.WithField("event", e.Type).Warn("mqtt queue full, event dropped")
	}
}

// Close stops accepting events and waits for the queued ones to be published.
func (o *Observer) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()
	<-o.done
}

func (o *Observer) run() {
	defer close(o.done)
	for e := range o.queue {
		if err := o.pub.Publish(e); err != nil {
			log.WithError(err).WithField("event", e.Type).Warn("mqtt publish failed")
		}
	}
}
