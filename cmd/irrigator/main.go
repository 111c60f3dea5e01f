// Command irrigator waters a single potted plant once a day. It samples a
// water-contact sensor and a soil-moisture sensor, runs the pump for a fixed
// dose when the soil is dry, and counts down to the next check on a 16x2 LCD.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/sweeney/plant-irrigator/internal/clock"
	"github.com/sweeney/plant-irrigator/internal/controller"
	"github.com/sweeney/plant-irrigator/internal/gpio"
	"github.com/sweeney/plant-irrigator/internal/lcd"
	"github.com/sweeney/plant-irrigator/internal/logic"
	"github.com/sweeney/plant-irrigator/internal/metrics"
	"github.com/sweeney/plant-irrigator/internal/mqtt"
	"github.com/sweeney/plant-irrigator/internal/sensor"
	"github.com/sweeney/plant-irrigator/internal/status"
	"github.com/sweeney/plant-irrigator/internal/web"
)

// startupHold lets the supply and the peripherals settle after power-up.
const startupHold = 2000 * time.Millisecond

type options struct {
	chip       string
	pinSensors int
	pinPump    int
	i2cBus     string
	lcdAddr    uint
	adcAddr    uint
	broker     string
	httpAddr   string
	printState bool
}

func main() {
	var opts options
	flag.StringVar(&opts.chip, "chip", "gpiochip0", "GPIO chip name")
	flag.IntVar(&opts.pinSensors, "pin-sensors", gpio.DefaultPinSensors, "GPIO line powering both sensors")
	flag.IntVar(&opts.pinPump, "pin-pump", gpio.DefaultPinPump, "GPIO line driving the pump relay")
	flag.StringVar(&opts.i2cBus, "i2c", "", "I2C bus name (empty for the first bus)")
	flag.UintVar(&opts.lcdAddr, "lcd-addr", lcd.DefaultAddr, "I2C address of the LCD backpack")
	flag.UintVar(&opts.adcAddr, "adc-addr", sensor.DefaultAddr, "I2C address of the ADS1115")
	flag.StringVar(&opts.broker, "broker", "", "MQTT broker address (empty to disable)")
	flag.StringVar(&opts.httpAddr, "http", "", "HTTP status address (empty to disable)")
	flag.BoolVar(&opts.printState, "print-state", false, "Sample the sensors once, print the decision and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	setupLogging(*debug)
	if err := run(opts); err != nil {
		log.WithError(err).Fatal("fatal")
	}
}

func setupLogging(debug bool) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stdout)
	if debug {
		log.SetLevel(log.DebugLevel)
	}
}

func run(opts options) error {
	sched, err := logic.DefaultSchedule()
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	log.WithFields(log.Fields{
		"sensors_on": sched.SensorsOn,
		"pump_on":    sched.PumpOn,
		"next_check": sched.NextCheck,
	}).Debug("schedule")

	time.Sleep(startupHold)

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("init host drivers: %w", err)
	}

	sensorPower, err := gpio.NewRealOutput(opts.chip, opts.pinSensors, "sensors")
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer sensorPower.Close()

	adcBus, err := i2creg.Open(opts.i2cBus)
	if err != nil {
		return fmt.Errorf("open i2c for adc: %w", err)
	}
	reader := sensor.NewADS1115(adcBus, uint16(opts.adcAddr))
	defer reader.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if opts.printState {
		return printState(context.Background(), os.Stdout, sensorPower, reader, clock.Real{}, sched, logic.DefaultThresholds)
	}

	pump, err := gpio.NewRealOutput(opts.chip, opts.pinPump, "pump")
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pump.Close()

	lcdBus, err := i2creg.Open(opts.i2cBus)
	if err != nil {
		return fmt.Errorf("open i2c for lcd: %w", err)
	}
	defer lcdBus.Close()
	dev, err := lcd.NewHD44780(lcdBus, uint8(opts.lcdAddr))
	if err != nil {
		return fmt.Errorf("init lcd: %w", err)
	}
	display := lcd.NewReliable(dev, clock.Real{})
	if err := display.EnsureReliableInit(context.Background()); err != nil {
		return fmt.Errorf("init lcd: %w", err)
	}

	tracker := status.NewTracker(time.Now(), sched, status.Config{
		PinSensors: opts.pinSensors,
		PinPump:    opts.pinPump,
		I2CBus:     opts.i2cBus,
		Broker:     opts.broker,
		HTTPAddr:   opts.httpAddr,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	observers := []controller.Observer{tracker, metrics.New(reg)}

	var publisher mqtt.Publisher
	if opts.broker != "" {
		p, err := mqtt.NewRealPublisher(opts.broker, tracker.SetMQTTConnected)
		if err != nil {
			log.WithError(err).Warn("mqtt disabled")
		} else {
			defer p.Close()
			publisher = p
			obs := mqtt.NewObserver(p, mqtt.DefaultQueueSize)
			defer obs.Close()
			observers = append(observers, obs)
		}
	}

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("http server")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.WithField("addr", opts.httpAddr).Info("http status server listening")
	}

	ctl, err := controller.New(controller.Config{
		SensorPower: sensorPower,
		Pump:        pump,
		Sensors:     reader,
		Display:     display,
		Clock:       clock.Real{},
		Thresholds:  logic.DefaultThresholds,
		Schedule:    sched,
		Observers:   observers,
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"pin_sensors": opts.pinSensors,
		"pin_pump":    opts.pinPump,
		"broker":      opts.broker,
		"http":        opts.httpAddr,
	}).Info("started")

	return runDaemon(context.Background(), ctl, publisher, tracker, sigCh)
}

type runner interface {
	Run(ctx context.Context) error
}

// runDaemon announces startup, runs the cycle loop until a signal arrives or
// the loop fails, then announces shutdown. publisher may be nil.
func runDaemon(ctx context.Context, ctl runner, publisher mqtt.Publisher, tracker *status.Tracker, sig <-chan os.Signal) error {
	publishSystem(publisher, tracker, "STARTUP", "")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reasons := make(chan string, 1)
	go func() {
		select {
		case s := <-sig:
			log.WithField("signal", s).Info("shutting down")
			reasons <- signalName(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	err := ctl.Run(ctx)
	cancel()

	reason := "STOPPED"
	select {
	case reason = <-reasons:
	default:
		if err != nil {
			reason = "ERROR"
		}
	}
	publishSystem(publisher, tracker, "SHUTDOWN", reason)
	return err
}

func publishSystem(publisher mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	if publisher == nil {
		return
	}
	snap := tracker.Snapshot()
	err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.WithError(err).WithField("event", event).Warn("publish system event")
		return
	}
	log.WithField("event", event).Info("published system event")
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// printState powers the sensors for one sensing window, samples them and
// prints the readings with the decision that would be taken.
func printState(ctx context.Context, w io.Writer, power gpio.Output, reader sensor.Reader, clk clock.Clock, sched logic.Schedule, th logic.Thresholds) error {
	if err := power.Set(true); err != nil {
		return fmt.Errorf("sensor power on: %w", err)
	}
	defer func() {
		if err := power.Set(false); err != nil {
			log.WithError(err).Error("sensor power off")
		}
	}()

	if err := clk.Sleep(ctx, sched.SensorsOn); err != nil {
		return err
	}
	s, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read sensors: %w", err)
	}
	d := logic.Decide(s, th)
	fmt.Fprintf(w, "water: %d, moisture: %d, decision: %s\n", s.Water, s.Moisture, d)
	return nil
}
