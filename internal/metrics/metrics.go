// Package metrics exposes cycle counters and the last readings to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

const namespace = "irrigator"

// Metrics holds the irrigator collectors.
type Metrics struct {
	cycles          prometheus.Counter
	decisions       *prometheus.CounterVec
	pumpSeconds     prometheus.Counter
	reading         *prometheus.GaugeVec
	minutesLeft     prometheus.Gauge
	countdownErrors prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Completed irrigation cycles.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Watering decisions by outcome.",
		}, []string{"decision"}),
		pumpSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pump_on_seconds_total",
			Help:      "Total pump run time.",
		}),
		reading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_reading",
			Help:      "Last raw sensor reading (0-1023).",
		}, []string{"sensor"}),
		minutesLeft: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "countdown_minutes",
			Help:      "Whole minutes until the next sensing window.",
		}),
		countdownErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "countdown_errors_total",
			Help:      "Countdown ticks that did not fit the display.",
		}),
	}
	reg.MustRegister(m.cycles, m.decisions, m.pumpSeconds, m.reading, m.minutesLeft, m.countdownErrors)
	return m
}

// Observe updates the collectors from a cycle event.
func (m *Metrics) Observe(e logic.Event) {
	switch e.Type {
	case logic.EventSensing:
		m.reading.WithLabelValues("water").Set(float64(e.Sample.Water))
		m.reading.WithLabelValues("moisture").Set(float64(e.Sample.Moisture))
	case logic.EventDecision:
		m.decisions.WithLabelValues(string(e.Decision)).Inc()
		m.pumpSeconds.Add(e.PumpOn.Seconds())
	case logic.EventCountdown:
		m.minutesLeft.Set(float64(e.MinutesLeft))
	case logic.EventCountdownError:
		m.minutesLeft.Set(float64(e.MinutesLeft))
		m.countdownErrors.Inc()
	case logic.EventCycleComplete:
		m.minutesLeft.Set(0)
		m.cycles.Inc()
	}
}
