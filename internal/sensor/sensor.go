// Package sensor samples the water-contact and soil-moisture sensors.
// The real implementation reads an ADS1115 ADC over I2C.
// The fake implementation allows testing without hardware.
package sensor

import "github.com/sweeney/plant-irrigator/internal/logic"

// Reader samples both sensors once.
type Reader interface {
	// Read returns both raw readings on the 0-1023 scale.
	Read() (logic.Sample, error)

	// Close releases sensor resources.
	Close() error
}

// ADC input channels.
const (
	ChannelWater    = 0
	ChannelMoisture = 1
)

// DefaultAddr is the ADS1115 address with ADDR tied to ground.
const DefaultAddr = 0x48

// MaxReading is the top of the raw reading scale the thresholds are expressed in.
const MaxReading = 1023
