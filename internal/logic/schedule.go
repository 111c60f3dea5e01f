package logic

import (
	"fmt"
	"time"
)

// Schedule holds the durations derived once at startup.
type Schedule struct {
	SensorsOn          time.Duration
	PumpOn             time.Duration
	NextCheck          time.Duration // wait between the end of dosing and the next sensing window
	NextCheckMinutes   uint32
	NextCheckRemainder time.Duration
}

// PumpOnDuration converts a dose into whole milliseconds of pump run time.
// Any fractional millisecond is truncated.
func PumpOnDuration(dose DoseConfig) (time.Duration, error) {
	if !(dose.MLPerMs > 0) {
		return 0, fmt.Errorf("%w: flow rate must be positive, got %v ml/ms", ErrConfiguration, dose.MLPerMs)
	}
	if dose.WaterToPlantML < 0 {
		return 0, fmt.Errorf("%w: dose must not be negative, got %v ml", ErrConfiguration, dose.WaterToPlantML)
	}
	ms := int64(dose.WaterToPlantML / dose.MLPerMs)
	return time.Duration(ms) * time.Millisecond, nil
}

// NewSchedule derives the cycle timing from the dose and the sensing window.
// The wait is one day minus the time the pump hold runs past the sensing window.
// No drift correction is applied; every cycle uses the same holds.
func NewSchedule(dose DoseConfig, sensorsOn time.Duration) (Schedule, error) {
	pumpOn, err := PumpOnDuration(dose)
	if err != nil {
		return Schedule{}, err
	}
	if pumpOn < sensorsOn {
		return Schedule{}, fmt.Errorf("%w: pump duration %v is shorter than sensing window %v",
			ErrConfiguration, pumpOn, sensorsOn)
	}
	if pumpOn-sensorsOn >= CycleLength {
		return Schedule{}, fmt.Errorf("%w: pump duration %v leaves no time in a %v cycle",
			ErrConfiguration, pumpOn, CycleLength)
	}

	next := CycleLength - (pumpOn - sensorsOn)
	return Schedule{
		SensorsOn:          sensorsOn,
		PumpOn:             pumpOn,
		NextCheck:          next,
		NextCheckMinutes:   uint32(next / time.Minute),
		NextCheckRemainder: next % time.Minute,
	}, nil
}

// DefaultSchedule validates the built-in constants and derives their schedule.
func DefaultSchedule() (Schedule, error) {
	if err := DefaultThresholds.Validate(); err != nil {
		return Schedule{}, err
	}
	return NewSchedule(DefaultDose, SensorsOnDuration)
}
