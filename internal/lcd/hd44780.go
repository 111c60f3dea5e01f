package lcd

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

// DefaultAddr is the usual I2C address of a PCF8574 LCD backpack.
const DefaultAddr = 0x27

// configureAttempts bounds the retries of the initial configuration.
const configureAttempts = 5

// HD44780 is a Device backed by an HD44780 module on an I2C backpack.
type HD44780 struct {
	dev *hd44780i2c.Device
}

// NewHD44780 configures the display at addr on bus. Configuration is retried
// with exponential backoff; failure after the last attempt is returned.
func NewHD44780(bus drivers.I2C, addr uint8) (*HD44780, error) {
	dev := hd44780i2c.New(bus, addr)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	configure := func() error {
		return dev.Configure(hd44780i2c.Config{
			Width:  logic.DisplayColumns,
			Height: Rows,
		})
	}
	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithField("retry_in", wait).Warn("lcd: configure failed")
	}
	if err := backoff.RetryNotify(configure, backoff.WithMaxRetries(b, configureAttempts-1), notify); err != nil {
		return nil, fmt.Errorf("configure lcd at 0x%02x: %w", addr, err)
	}

	return &HD44780{dev: &dev}, nil
}

// Clear clears the display and homes the cursor.
func (h *HD44780) Clear() {
	h.dev.ClearDisplay()
}

// SetCursor moves the cursor.
func (h *HD44780) SetCursor(col, row uint8) {
	h.dev.SetCursor(col, row)
}

// Print writes text at the cursor.
func (h *HD44780) Print(text []byte) {
	h.dev.Print(text)
}

// Power switches the display and its backlight.
func (h *HD44780) Power(on bool) {
	h.dev.DisplayOn(on)
	h.dev.BacklightOn(on)
}
