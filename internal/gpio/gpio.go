// Package gpio provides digital output lines with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single digital output line.
type Output interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error

	// Close drives the line low and releases it.
	Close() error
}

// Default line offsets on gpiochip0 (BCM numbering).
const (
	DefaultPinSensors = 23 // shared power for the water and moisture sensors
	DefaultPinPump    = 24 // pump relay
)
