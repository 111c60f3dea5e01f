package sensor

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sweeney/plant-irrigator/internal/logic"
	"periph.io/x/conn/v3/i2c"
)

// ADS1115 registers and configuration bits.
const (
	regConversion = 0x00
	regConfig     = 0x01

	cfgStartSingle = 1 << 15
	cfgMuxSingle0  = 0x4 << 12 // AIN0 vs GND; AINn is cfgMuxSingle0 + n<<12
	cfgGain4V096   = 0x1 << 9  // full scale +/-4.096 V
	cfgModeSingle  = 1 << 8
	cfgRate128     = 0x4 << 5
	cfgCompDisable = 0x3

	// At 128 samples/s one conversion takes 7.8 ms.
	conversionTime = 9 * time.Millisecond

	fullScaleVolts = 4.096
	supplyVolts    = 3.3 // sensors are powered from the 3.3 V rail
)

// ADS1115 samples both sensors through a 16-bit ADC on an I2C bus.
type ADS1115 struct {
	bus i2c.BusCloser
	dev i2c.Dev
}

// NewADS1115 creates a reader for the ADC at addr on bus. Close closes the bus.
func NewADS1115(bus i2c.BusCloser, addr uint16) *ADS1115 {
	return &ADS1115{
		bus: bus,
		dev: i2c.Dev{Bus: bus, Addr: addr},
	}
}

// Read converts the water channel, then the moisture channel.
func (a *ADS1115) Read() (logic.Sample, error) {
	water, err := a.readChannel(ChannelWater)
	if err != nil {
		return logic.Sample{}, fmt.Errorf("read water sensor: %w", err)
	}
	moisture, err := a.readChannel(ChannelMoisture)
	if err != nil {
		return logic.Sample{}, fmt.Errorf("read moisture sensor: %w", err)
	}
	return logic.Sample{Water: water, Moisture: moisture}, nil
}

// Close releases the I2C bus.
func (a *ADS1115) Close() error {
	return a.bus.Close()
}

func (a *ADS1115) readChannel(ch int) (uint16, error) {
	cfg := uint16(cfgStartSingle | cfgMuxSingle0 | ch<<12 | cfgGain4V096 | cfgModeSingle | cfgRate128 | cfgCompDisable)

	w := []byte{regConfig, 0, 0}
	binary.BigEndian.PutUint16(w[1:], cfg)
	if err := a.dev.Tx(w, nil); err != nil {
		return 0, fmt.Errorf("start conversion on AIN%d: %w", ch, err)
	}

	time.Sleep(conversionTime)

	r := make([]byte, 2)
	if err := a.dev.Tx([]byte{regConversion}, r); err != nil {
		return 0, fmt.Errorf("read conversion on AIN%d: %w", ch, err)
	}
	return scaleReading(int16(binary.BigEndian.Uint16(r))), nil
}

// scaleReading maps a signed 16-bit conversion at +/-4.096 V full scale onto
// the 0-1023 range of a 10-bit ADC referenced to the sensor supply.
func scaleReading(raw int16) uint16 {
	if raw <= 0 {
		return 0
	}
	volts := float64(raw) * fullScaleVolts / 32768
	v := volts / supplyVolts * MaxReading
	if v >= MaxReading {
		return MaxReading
	}
	return uint16(v)
}
