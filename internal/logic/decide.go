package logic

// Decide evaluates one sample against the thresholds.
//
// A moisture reading below the lower limit means the sensor is out of the soil and
// takes precedence over everything else. Otherwise the plant needs water only when
// the water sensor is dry AND the soil is dry. A reading equal to a limit is not
// below it.
func Decide(s Sample, t Thresholds) Decision {
	if s.Moisture < t.MoistureSensorLowerLimit {
		return DecisionSensorNotInSoil
	}
	if s.Water < t.WaterSensorLimit && s.Moisture < t.MoistureSensorDrySoilLimit {
		return DecisionNeedsWater
	}
	return DecisionSufficientWater
}

// PumpOn reports whether the decision runs the pump.
func (d Decision) PumpOn() bool {
	return d == DecisionNeedsWater
}
