package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string        `json:"event,omitempty"`
	Reason          string        `json:"reason,omitempty"`
	Phase           string        `json:"phase"`
	Cycle           uint64        `json:"cycle"`
	Decision        string        `json:"decision"`
	DecisionAt      string        `json:"decision_at,omitempty"`
	Readings        *ReadingsJSON `json:"readings,omitempty"`
	MinutesLeft     uint32        `json:"minutes_left"`
	Countdown       string        `json:"countdown,omitempty"`
	CountdownErrors int           `json:"countdown_errors"`
	UptimeSeconds   int64         `json:"uptime_seconds"`
	StartTime       string        `json:"start_time"`
	Timestamp       string        `json:"timestamp"`
	MQTT            MQTTStatus    `json:"mqtt"`
	Counts          CountsJSON    `json:"decision_counts"`
	Schedule        ScheduleJSON  `json:"schedule"`
	Config          ConfigJSON    `json:"config"`
}

// ReadingsJSON holds the last raw sensor readings.
type ReadingsJSON struct {
	Water    uint16 `json:"water"`
	Moisture uint16 `json:"moisture"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of decision counts.
type CountsJSON struct {
	SensorNotInSoil int `json:"sensor_not_in_soil"`
	NeedsWater      int `json:"needs_water"`
	SufficientWater int `json:"sufficient_water"`
}

// ScheduleJSON is the JSON representation of the cycle timing.
type ScheduleJSON struct {
	SensorsOnMs   int64  `json:"sensors_on_ms"`
	PumpOnMs      int64  `json:"pump_on_ms"`
	NextCheckMs   int64  `json:"next_check_ms"`
	NextCheckMins uint32 `json:"next_check_minutes"`
	RemainderMs   int64  `json:"next_check_remainder_ms"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PinSensors int    `json:"pin_sensors"`
	PinPump    int    `json:"pin_pump"`
	I2CBus     string `json:"i2c_bus"`
	Broker     string `json:"broker,omitempty"`
	HTTPAddr   string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	phase := string(snap.Phase)
	if phase == "" {
		phase = "STARTING"
	}
	decision := string(snap.LastDecision)
	if decision == "" {
		decision = "UNKNOWN"
	}

	inner := StatusInner{
		Phase:           phase,
		Cycle:           snap.Cycle,
		Decision:        decision,
		MinutesLeft:     snap.MinutesLeft,
		CountdownErrors: snap.CountdownErrors,
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		MQTT:            MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			SensorNotInSoil: snap.Counts.SensorNotInSoil,
			NeedsWater:      snap.Counts.NeedsWater,
			SufficientWater: snap.Counts.SufficientWater,
		},
		Schedule: ScheduleJSON{
			SensorsOnMs:   snap.Schedule.SensorsOn.Milliseconds(),
			PumpOnMs:      snap.Schedule.PumpOn.Milliseconds(),
			NextCheckMs:   snap.Schedule.NextCheck.Milliseconds(),
			NextCheckMins: snap.Schedule.NextCheckMinutes,
			RemainderMs:   snap.Schedule.NextCheckRemainder.Milliseconds(),
		},
		Config: ConfigJSON{
			PinSensors: snap.Config.PinSensors,
			PinPump:    snap.Config.PinPump,
			I2CBus:     snap.Config.I2CBus,
			Broker:     snap.Config.Broker,
			HTTPAddr:   snap.Config.HTTPAddr,
		},
	}
	if !snap.LastDecisionAt.IsZero() {
		inner.DecisionAt = snap.LastDecisionAt.UTC().Format(time.RFC3339)
	}
	if snap.Sampled {
		inner.Readings = &ReadingsJSON{Water: snap.LastSample.Water, Moisture: snap.LastSample.Moisture}
	}
	if snap.Phase == logic.EventCountdown {
		var buf [logic.CountdownLen]byte
		if logic.NewCountdown(snap.MinutesLeft).Format(&buf) == nil {
			inner.Countdown = string(buf[:])
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
