// Package controller runs the daily irrigation cycle: power and sample the
// sensors, decide, dose, then count down to the next sensing window.
//
// The cycle is a fixed sequence of blocking holds. Every branch of the
// decision consumes the same time, so the cycle length never depends on the
// readings.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/plant-irrigator/internal/clock"
	"github.com/sweeney/plant-irrigator/internal/gpio"
	"github.com/sweeney/plant-irrigator/internal/logic"
	"github.com/sweeney/plant-irrigator/internal/sensor"
)

// Display shows two-row messages. lcd.Reliable implements it.
type Display interface {
	Clear(ctx context.Context) error
	ClearPrint(ctx context.Context, row0, row1 string) error
	Show(ctx context.Context, m logic.Message) error
}

// Observer receives cycle events. Observers must not block.
type Observer interface {
	Observe(e logic.Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(e logic.Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e logic.Event) { f(e) }

const (
	// blankHold keeps the screen empty before each countdown redraw.
	blankHold = 1000 * time.Millisecond
	// countdownTick is the hold after each countdown redraw.
	countdownTick = time.Minute
)

// Controller owns the peripherals for the lifetime of the process.
type Controller struct {
	sensorPower gpio.Output
	pump        gpio.Output
	sensors     sensor.Reader
	display     Display
	clock       clock.Clock
	thresholds  logic.Thresholds
	schedule    logic.Schedule
	observers   []Observer

	cycle uint64
	buf   [logic.CountdownLen]byte
}

// Config wires a Controller.
type Config struct {
	SensorPower gpio.Output
	Pump        gpio.Output
	Sensors     sensor.Reader
	Display     Display
	Clock       clock.Clock
	Thresholds  logic.Thresholds
	Schedule    logic.Schedule
	Observers   []Observer
}

// New creates a Controller. It validates the thresholds; the schedule is
// expected to come from logic.NewSchedule.
func New(cfg Config) (*Controller, error) {
	if cfg.SensorPower == nil || cfg.Pump == nil || cfg.Sensors == nil || cfg.Display == nil || cfg.Clock == nil {
		return nil, errors.New("controller: missing peripheral")
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Controller{
		sensorPower: cfg.SensorPower,
		pump:        cfg.Pump,
		sensors:     cfg.Sensors,
		display:     cfg.Display,
		clock:       cfg.Clock,
		thresholds:  cfg.Thresholds,
		schedule:    cfg.Schedule,
		observers:   cfg.Observers,
	}, nil
}

// Run repeats the cycle until ctx is done or an output fails.
// Cancellation returns nil after both outputs are driven low.
func (c *Controller) Run(ctx context.Context) error {
	for {
		if err := c.RunCycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// RunCycle runs one full cycle: sensing, deciding, countdown.
// On any error both outputs are driven low before returning.
func (c *Controller) RunCycle(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			c.safeOff()
		}
	}()

	c.cycle++

	sample, err := c.sense(ctx)
	if err != nil {
		return err
	}
	d, err := c.decide(ctx, sample)
	if err != nil {
		return err
	}
	if err := c.countdown(ctx); err != nil {
		return err
	}

	c.emit(logic.Event{Type: logic.EventCycleComplete, Sample: sample, Decision: d})
	return nil
}

// sense powers the sensors for the sensing window and samples at its end.
func (c *Controller) sense(ctx context.Context) (logic.Sample, error) {
	if err := c.sensorPower.Set(true); err != nil {
		return logic.Sample{}, fmt.Errorf("sensor power on: %w", err)
	}
	if err := c.display.Show(ctx, logic.MsgSensorsOn); err != nil {
		return logic.Sample{}, err
	}
	if err := c.clock.Sleep(ctx, c.schedule.SensorsOn); err != nil {
		return logic.Sample{}, err
	}

	sample, err := c.sensors.Read()
	if err != nil {
		return logic.Sample{}, fmt.Errorf("read sensors: %w", err)
	}
	if err := c.sensorPower.Set(false); err != nil {
		return logic.Sample{}, fmt.Errorf("sensor power off: %w", err)
	}

	log.WithFields(log.Fields{
		"cycle":    c.cycle,
		"water":    sample.Water,
		"moisture": sample.Moisture,
	}).Info("sensors sampled")
	c.emit(logic.Event{Type: logic.EventSensing, Sample: sample})
	return sample, nil
}

// decide shows the outcome and holds for the pump duration whether or not the
// pump runs. The pump is driven low at the end of the hold on every branch.
func (c *Controller) decide(ctx context.Context, sample logic.Sample) (logic.Decision, error) {
	d := logic.Decide(sample, c.thresholds)

	fields := log.Fields{"cycle": c.cycle, "decision": d}
	ev := logic.Event{Type: logic.EventDecision, Sample: sample, Decision: d}
	if d.PumpOn() {
		fields["pump_on"] = c.schedule.PumpOn
		ev.PumpOn = c.schedule.PumpOn
	}
	log.WithFields(fields).Info("decision")
	// Observers run before the pump starts, never inside the dose.
	c.emit(ev)

	if err := c.display.Show(ctx, d.Message()); err != nil {
		return d, err
	}
	if d.PumpOn() {
		if err := c.pump.Set(true); err != nil {
			return d, fmt.Errorf("pump on: %w", err)
		}
	}
	if err := c.clock.Sleep(ctx, c.schedule.PumpOn); err != nil {
		return d, err
	}
	if err := c.pump.Set(false); err != nil {
		return d, fmt.Errorf("pump off: %w", err)
	}
	return d, nil
}

// countdown shows one tick per whole minute left, then the sub-minute remainder.
func (c *Controller) countdown(ctx context.Context) error {
	for m := c.schedule.NextCheckMinutes; m >= 1; m-- {
		if err := c.tick(ctx, m); err != nil {
			return err
		}
	}
	if err := c.display.Show(ctx, logic.MsgLessThanMinute); err != nil {
		return err
	}
	return c.clock.Sleep(ctx, c.schedule.NextCheckRemainder)
}

// tick blanks the screen for blankHold, shows the minutes left and holds for
// one minute. A countdown that does not fit the display shows an error
// message and still holds.
func (c *Controller) tick(ctx context.Context, minutesLeft uint32) error {
	if err := c.display.Clear(ctx); err != nil {
		return err
	}
	if err := c.clock.Sleep(ctx, blankHold); err != nil {
		return err
	}
	if err := logic.NewCountdown(minutesLeft).Format(&c.buf); err != nil {
		log.WithError(err).WithField("minutes_left", minutesLeft).Error("countdown")
		c.emit(logic.Event{Type: logic.EventCountdownError, MinutesLeft: minutesLeft, Err: err})
		if err := c.display.Show(ctx, logic.MsgCountdownError); err != nil {
			return err
		}
	} else {
		c.emit(logic.Event{Type: logic.EventCountdown, MinutesLeft: minutesLeft})
		if err := c.display.ClearPrint(ctx, logic.MeasuresIn, string(c.buf[:])); err != nil {
			return err
		}
	}
	return c.clock.Sleep(ctx, countdownTick)
}

// safeOff drives both outputs low, logging failures.
func (c *Controller) safeOff() {
	if err := c.pump.Set(false); err != nil {
		log.WithError(err).Error("pump off")
	}
	if err := c.sensorPower.Set(false); err != nil {
		log.WithError(err).Error("sensor power off")
	}
}

func (c *Controller) emit(e logic.Event) {
	e.Timestamp = c.clock.Now()
	e.Cycle = c.cycle
	for _, o := range c.observers {
		o.Observe(e)
	}
}

// Schedule returns the cycle timing in use.
func (c *Controller) Schedule() logic.Schedule {
	return c.schedule
}
