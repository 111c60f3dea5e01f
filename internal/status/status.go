// Package status provides a thread-safe status tracker for the irrigator.
// It is fed cycle events by the controller and read by HTTP handlers and
// MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PinSensors int
	PinPump    int
	I2CBus     string
	Broker     string
	HTTPAddr   string
}

// DecisionCounts tracks how often each decision was taken since startup.
type DecisionCounts struct {
	SensorNotInSoil int
	NeedsWater      int
	SufficientWater int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Phase           logic.EventType // last event seen; empty before the first cycle
	Cycle           uint64
	Sampled         bool // LastSample is valid
	LastSample      logic.Sample
	LastDecision    logic.Decision
	LastDecisionAt  time.Time
	MinutesLeft     uint32
	Counts          DecisionCounts
	CountdownErrors int
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	Schedule        logic.Schedule
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time, schedule and config.
func NewTracker(startTime time.Time, sched logic.Schedule, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Schedule:  sched,
			Config:    cfg,
		},
	}
}

// Observe folds a cycle event into the tracked state.
func (t *Tracker) Observe(e logic.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Phase = e.Type
	t.snap.Cycle = e.Cycle

	switch e.Type {
	case logic.EventSensing:
		t.snap.Sampled = true
		t.snap.LastSample = e.Sample
	case logic.EventDecision:
		t.snap.LastDecision = e.Decision
		t.snap.LastDecisionAt = e.Timestamp
		switch e.Decision {
		case logic.DecisionSensorNotInSoil:
			t.snap.Counts.SensorNotInSoil++
		case logic.DecisionNeedsWater:
			t.snap.Counts.NeedsWater++
		case logic.DecisionSufficientWater:
			t.snap.Counts.SufficientWater++
		}
	case logic.EventCountdown:
		t.snap.MinutesLeft = e.MinutesLeft
	case logic.EventCountdownError:
		t.snap.MinutesLeft = e.MinutesLeft
		t.snap.CountdownErrors++
	case logic.EventCycleComplete:
		t.snap.MinutesLeft = 0
	}
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
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
