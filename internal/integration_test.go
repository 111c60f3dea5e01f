package internal

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/plant-irrigator/internal/clock"
	"github.com/sweeney/plant-irrigator/internal/controller"
	"github.com/sweeney/plant-irrigator/internal/gpio"
	"github.com/sweeney/plant-irrigator/internal/lcd"
	"github.com/sweeney/plant-irrigator/internal/logic"
	"github.com/sweeney/plant-irrigator/internal/metrics"
	"github.com/sweeney/plant-irrigator/internal/mqtt"
	"github.com/sweeney/plant-irrigator/internal/sensor"
	"github.com/sweeney/plant-irrigator/internal/status"
)

// screens records every message handed to the display, then forwards it.
type screens struct {
	controller.Display
	shown []logic.Message
}

func (s *screens) ClearPrint(ctx context.Context, row0, row1 string) error {
	s.shown = append(s.shown, logic.Message{Row0: row0, Row1: row1})
	return s.Display.ClearPrint(ctx, row0, row1)
}

func (s *screens) Show(ctx context.Context, m logic.Message) error {
	s.shown = append(s.shown, m)
	return s.Display.Show(ctx, m)
}

type rig struct {
	clk         *clock.Fake
	sensorPower *gpio.FakeOutput
	pump        *gpio.FakeOutput
	device      *lcd.FakeDevice
	screens     *screens
	tracker     *status.Tracker
	registry    *prometheus.Registry
	metrics     *metrics.Metrics
	publisher   *mqtt.FakePublisher
	observer    *mqtt.Observer
	ctl         *controller.Controller
	sched       logic.Schedule
}

func newRig(t *testing.T, samples ...logic.Sample) *rig {
	t.Helper()
	start := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	sched, err := logic.DefaultSchedule()
	if err != nil {
		t.Fatalf("DefaultSchedule: %v", err)
	}

	r := &rig{
		clk:       clock.NewFake(start),
		device:    lcd.NewFakeDevice(),
		registry:  prometheus.NewRegistry(),
		publisher: mqtt.NewFakePublisher(),
		sched:     sched,
	}
	r.sensorPower = gpio.NewFakeOutput(r.clk.Now)
	r.pump = gpio.NewFakeOutput(r.clk.Now)
	r.screens = &screens{Display: lcd.NewReliable(r.device, clock.NewFake(start))}
	r.tracker = status.NewTracker(start, sched, status.Config{PinSensors: gpio.DefaultPinSensors, PinPump: gpio.DefaultPinPump})
	r.metrics = metrics.New(r.registry)
	r.observer = mqtt.NewObserver(r.publisher, mqtt.DefaultQueueSize)

	r.ctl, err = controller.New(controller.Config{
		SensorPower: r.sensorPower,
		Pump:        r.pump,
		Sensors:     sensor.NewFakeReader(samples...),
		Display:     r.screens,
		Clock:       r.clk,
		Thresholds:  logic.DefaultThresholds,
		Schedule:    sched,
		Observers:   []controller.Observer{r.tracker, r.metrics, r.observer},
	})
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	return r
}

// holdsPerCycle is the number of clock holds in one cycle.
func (r *rig) holdsPerCycle() int {
	return 1 + 1 + 2*int(r.sched.NextCheckMinutes) + 1
}

// runCycles runs n complete cycles, stops in the sensing window of the next
// and waits for queued MQTT events to be published.
func (r *rig) runCycles(t *testing.T, n int) {
	t.Helper()
	r.clk.CancelAfter = n*r.holdsPerCycle() + 1
	if err := r.ctl.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	r.observer.Close()
}

// TestIntegrationThreeDays runs three daily cycles covering every decision.
func TestIntegrationThreeDays(t *testing.T) {
	r := newRig(t,
		logic.Sample{Water: 50, Moisture: 300},  // dry soil, dry water sensor
		logic.Sample{Water: 400, Moisture: 300}, // water sensor wet
		logic.Sample{Water: 50, Moisture: 5},    // sensor out of soil
	)

	r.runCycles(t, 3)

	// Timing: every cycle is the same length whatever the decision.
	blank := time.Duration(r.sched.NextCheckMinutes) * time.Second
	wantCycle := r.sched.SensorsOn + r.sched.PumpOn + r.sched.NextCheck + blank
	if got := r.clk.Elapsed(); got != 3*wantCycle {
		t.Errorf("elapsed: got %v, want %v", got, 3*wantCycle)
	}

	// Pump ran once, for the dose duration.
	if got := r.pump.HighDurations(); len(got) != 1 || got[0] != r.sched.PumpOn {
		t.Errorf("pump runs: got %v, want [%v]", got, r.sched.PumpOn)
	}
	// Sensors powered for one window per cycle, plus the interrupted fourth.
	if got := r.sensorPower.HighDurations(); len(got) != 4 {
		t.Errorf("sensor windows: got %d, want 4", len(got))
	} else {
		for i := 0; i < 3; i++ {
			if got[i] != r.sched.SensorsOn {
				t.Errorf("sensor window %d: got %v, want %v", i, got[i], r.sched.SensorsOn)
			}
		}
	}
	if r.pump.High || r.sensorPower.High {
		t.Error("outputs must be low after shutdown")
	}

	// MQTT saw one decision per cycle, in order.
	var decisions []logic.Decision
	for _, e := range r.publisher.Events {
		decisions = append(decisions, e.Decision)
	}
	want := []logic.Decision{logic.DecisionNeedsWater, logic.DecisionSufficientWater, logic.DecisionSensorNotInSoil}
	if len(decisions) != len(want) {
		t.Fatalf("published decisions: got %v, want %v", decisions, want)
	}
	for i := range want {
		if decisions[i] != want[i] {
			t.Errorf("decision %d: got %s, want %s", i, decisions[i], want[i])
		}
	}

	// Status and metrics agree.
	snap := r.tracker.Snapshot()
	if snap.Counts != (status.DecisionCounts{SensorNotInSoil: 1, NeedsWater: 1, SufficientWater: 1}) {
		t.Errorf("tracker counts: got %+v", snap.Counts)
	}
	wantMetric := `
# HELP irrigator_cycles_total Completed irrigation cycles.
# TYPE irrigator_cycles_total counter
irrigator_cycles_total 3
`
	if err := testutil.GatherAndCompare(r.registry, strings.NewReader(wantMetric), "irrigator_cycles_total"); err != nil {
		t.Error(err)
	}
}

// TestIntegrationScreenSequence checks the messages of one cycle in order.
func TestIntegrationScreenSequence(t *testing.T) {
	r := newRig(t, logic.Sample{Water: 400, Moisture: 300})

	r.runCycles(t, 1)

	shown := r.screens.shown
	// sensors, decision, 1439 ticks, less than a minute, next sensors.
	if len(shown) != 1+1+int(r.sched.NextCheckMinutes)+1+1 {
		t.Fatalf("screens: got %d", len(shown))
	}
	if shown[0] != logic.MsgSensorsOn {
		t.Errorf("screen 0: got %+v", shown[0])
	}
	if shown[1] != logic.MsgSufficientWater {
		t.Errorf("screen 1: got %+v", shown[1])
	}
	if first := shown[2]; first != (logic.Message{Row0: "Measures in", Row1: "23h:59min"}) {
		t.Errorf("first tick: got %+v", first)
	}
	last := len(shown) - 3
	if shown[last] != (logic.Message{Row0: "Measures in", Row1: "00h:01min"}) {
		t.Errorf("last tick: got %+v", shown[last])
	}
	if shown[last+1] != logic.MsgLessThanMinute {
		t.Errorf("remainder screen: got %+v", shown[last+1])
	}
	if shown[last+2] != logic.MsgSensorsOn {
		t.Errorf("next cycle screen: got %+v", shown[last+2])
	}

	// The physical screen ends on the interrupted sensing window.
	if r.device.Line(0) != "Water & moisture" || r.device.Line(1) != "sensors ON" {
		t.Errorf("device: got (%q, %q)", r.device.Line(0), r.device.Line(1))
	}
}

// TestIntegrationStatusJSON checks the status document after a cycle.
func TestIntegrationStatusJSON(t *testing.T) {
	r := newRig(t, logic.Sample{Water: 50, Moisture: 300})

	r.runCycles(t, 1)

	var parsed status.StatusJSON
	if err := json.Unmarshal(status.FormatJSON(r.tracker.Snapshot()), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := parsed.Status
	if s.Phase != "CYCLE_COMPLETE" || s.Cycle != 1 {
		t.Errorf("phase/cycle: got %s/%d", s.Phase, s.Cycle)
	}
	if s.Decision != "NEEDS_WATER" || s.Counts.NeedsWater != 1 {
		t.Errorf("decision: got %s (%d)", s.Decision, s.Counts.NeedsWater)
	}
	if s.Readings == nil || s.Readings.Water != 50 || s.Readings.Moisture != 300 {
		t.Errorf("readings: got %+v", s.Readings)
	}
	if s.Schedule.PumpOnMs != 6315 {
		t.Errorf("pump_on_ms: got %d, want 6315", s.Schedule.PumpOnMs)
	}
}

// TestIntegrationPublishFailureDoesNotStopCycle keeps watering with a dead broker.
func TestIntegrationPublishFailureDoesNotStopCycle(t *testing.T) {
	r := newRig(t, logic.Sample{Water: 50, Moisture: 300})
	r.publisher.PublishError = errTest

	r.runCycles(t, 2)

	if got := r.pump.HighDurations(); len(got) != 2 {
		t.Errorf("pump runs: got %d, want 2", len(got))
	}
	if len(r.publisher.Events) != 0 {
		t.Errorf("events recorded despite error: %d", len(r.publisher.Events))
	}
}

var errTest = errors.New("broker unreachable")
