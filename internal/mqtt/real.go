package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

const (
	clientID       = "plant-irrigator"
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	bufferSize     = 64
	breakerTrips   = 3
	breakerOpen    = time.Minute
)

var errPublishTimeout = errors.New("publish timeout")

// RealPublisher publishes to an actual MQTT broker. While the connection is
// down messages are held in a ring buffer and replayed on reconnect. A
// circuit breaker stops repeated publish timeouts from stalling the cycle.
type RealPublisher struct {
	client  paho.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration

	mu       sync.Mutex
	buffer   *ringBuffer
	onChange func(connected bool)
}

// NewRealPublisher creates a publisher for the given broker. onChange, if
// non-nil, is called whenever the connection goes up or down.
//
// An unreachable broker is not an error: paho keeps retrying in the
// background and messages are buffered until it connects.
func NewRealPublisher(broker string, onChange func(connected bool)) (*RealPublisher, error) {
	p := newPublisher(nil, onChange)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.connected() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
			p.notify(false)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.WithField("broker", broker).Warn("mqtt broker not reachable yet, buffering")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func newPublisher(client paho.Client, onChange func(bool)) *RealPublisher {
	return &RealPublisher{
		client:  client,
		timeout: publishTimeout,
		buffer:  newRingBuffer(bufferSize),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "mqtt-publish",
			Timeout: breakerOpen,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= breakerTrips
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(log.Fields{"breaker": name, "from": from, "to": to}).Info("breaker state")
			},
		}),
		onChange: onChange,
	}
}

// Publish sends a cycle event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	if !p.client.IsConnectionOpen() {
		p.hold(msg)
		return nil
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.publish(msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.hold(msg)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(p.timeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func (p *RealPublisher) hold(msg bufferedMsg) {
	p.mu.Lock()
	p.buffer.push(msg)
	p.mu.Unlock()
}

// connected replays buffered messages oldest first.
func (p *RealPublisher) connected() {
	p.notify(true)

	p.mu.Lock()
	msgs, dropped := p.buffer.drainAll()
	p.mu.Unlock()

	if len(msgs) > 0 {
		log.WithFields(log.Fields{"count": len(msgs), "dropped": dropped}).Info("mqtt replaying buffered messages")
	}
	for _, m := range msgs {
		if err := p.publish(m); err != nil {
			log.WithError(err).WithField("topic", m.topic).Warn("mqtt replay failed")
		}
	}
}

func (p *RealPublisher) notify(connected bool) {
	if p.onChange != nil {
		p.onChange(connected)
	}
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
