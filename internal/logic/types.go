// Package logic contains the pure irrigation logic: dose and schedule arithmetic,
// the watering decision, the countdown text codec, and the display messages.
// This package has NO external dependencies (no GPIO, ADC, LCD, MQTT, or time.Sleep).
// Durations are plain time.Duration values; nothing here sleeps or reads a clock.
package logic

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfiguration reports inconsistent build-time constants. It is fatal at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrCountdownOverflow reports a countdown that does not fit the two-digit fields.
	ErrCountdownOverflow = errors.New("countdown overflow")
)

// Sample is one raw reading of both sensors, captured at the end of the sensing window.
type Sample struct {
	Water    uint16 // water-contact sensor, 0-1023
	Moisture uint16 // soil-moisture sensor, 0-1023
}

// Thresholds are the sensor limits. All comparisons are strict "below".
type Thresholds struct {
	// Water readings below this mean the water sensor is not touching water.
	WaterSensorLimit uint16
	// Moisture readings below this mean the sensor is not in soil.
	MoistureSensorLowerLimit uint16
	// Moisture readings below this mean the soil is dry enough to water.
	MoistureSensorDrySoilLimit uint16
}

// DefaultThresholds are the limits the controller is built with.
var DefaultThresholds = Thresholds{
	WaterSensorLimit:           100,
	MoistureSensorLowerLimit:   20,
	MoistureSensorDrySoilLimit: 500,
}

// Validate checks the ordering invariant between the two moisture limits.
func (t Thresholds) Validate() error {
	if t.MoistureSensorLowerLimit >= t.MoistureSensorDrySoilLimit {
		return fmt.Errorf("%w: moisture lower limit %d must be below dry soil limit %d",
			ErrConfiguration, t.MoistureSensorLowerLimit, t.MoistureSensorDrySoilLimit)
	}
	return nil
}

// DoseConfig describes how much water one watering event delivers.
type DoseConfig struct {
	WaterToPlantML float64 // dose volume in ml
	MLPerMs        float64 // pump flow rate, ml per millisecond
}

// DefaultDose is 300 ml at 0.0475 ml/ms (950 ml measured over 20 s).
var DefaultDose = DoseConfig{
	WaterToPlantML: 300,
	MLPerMs:        0.0475,
}

// SensorsOnDuration is how long both sensors are powered before sampling.
const SensorsOnDuration = 3000 * time.Millisecond

// CycleLength is the nominal period between two sensing windows.
const CycleLength = 24 * time.Hour

// Decision is the outcome of one evaluation of a Sample.
type Decision string

const (
	DecisionSensorNotInSoil Decision = "SENSOR_NOT_IN_SOIL"
	DecisionNeedsWater      Decision = "NEEDS_WATER"
	DecisionSufficientWater Decision = "SUFFICIENT_WATER"
)

// EventType identifies a step of the cycle reported to observers.
type EventType string

const (
	EventSensing        EventType = "SENSING"
	EventDecision       EventType = "DECISION"
	EventCountdown      EventType = "COUNTDOWN"
	EventCountdownError EventType = "COUNTDOWN_ERROR"
	EventCycleComplete  EventType = "CYCLE_COMPLETE"
)

// Event describes one step of a cycle.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Cycle       uint64
	Sample      Sample
	Decision    Decision      // set from EventDecision on
	PumpOn      time.Duration // pump run time; zero unless NeedsWater
	MinutesLeft uint32        // EventCountdown and EventCountdownError only
	Err         error         // EventCountdownError only
}
