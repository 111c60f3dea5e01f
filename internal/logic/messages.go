package logic

// Message is a two-row text for the 16x2 display.
type Message struct {
	Row0 string
	Row1 string
}

// DisplayColumns is the character-cell width of each display row. Every literal
// below fits within it.
const DisplayColumns = 16

var (
	MsgSensorsOn       = Message{"Water & moisture", "sensors ON"}
	MsgSensorNotInSoil = Message{"Moisture sensor", "not in soil"}
	MsgNeedsWater      = Message{"Plant is dry:", "pump ON"}
	MsgSufficientWater = Message{"Plant has enough", "water: pump OFF"}
	MsgLessThanMinute  = Message{"Measures in", "less than 1 min"}
	MsgCountdownError  = Message{"Measures in", "Error: overflow"}
)

// MeasuresIn is the first row of every countdown tick.
const MeasuresIn = "Measures in"

// Message returns the text shown for a decision.
func (d Decision) Message() Message {
	switch d {
	case DecisionSensorNotInSoil:
		return MsgSensorNotInSoil
	case DecisionNeedsWater:
		return MsgNeedsWater
	default:
		return MsgSufficientWater
	}
}
