// Package lcd drives the 16x2 character display.
//
// Device is the raw display boundary. Reliable wraps a Device with the
// command sequences that make cheap HD44780 modules behave: every redraw
// clears twice, and power is cycled three times after construction.
package lcd

import (
	"context"
	"time"

	"github.com/sweeney/plant-irrigator/internal/clock"
	"github.com/sweeney/plant-irrigator/internal/logic"
)

// Rows is the number of display lines.
const Rows = 2

// Device is a character display. Operations never fail once the device is built.
type Device interface {
	Clear()
	SetCursor(col, row uint8)
	Print(text []byte)
	Power(on bool)
}

// Settling delays. The exact values are empirical.
const (
	DefaultClearSettle = 2 * time.Millisecond
	DefaultRowSettle   = 100 * time.Microsecond
	DefaultPowerSettle = 50 * time.Millisecond
)

// powerCycles is how many off/on toggles EnsureReliableInit issues.
const powerCycles = 3

// Reliable issues deterministic command sequences against a Device.
type Reliable struct {
	dev   Device
	clock clock.Clock

	ClearSettle time.Duration
	RowSettle   time.Duration
	PowerSettle time.Duration

	initialized bool
	row         [logic.DisplayColumns]byte
}

// NewReliable wraps dev. Settling delays are taken on clk.
func NewReliable(dev Device, clk clock.Clock) *Reliable {
	return &Reliable{
		dev:         dev,
		clock:       clk,
		ClearSettle: DefaultClearSettle,
		RowSettle:   DefaultRowSettle,
		PowerSettle: DefaultPowerSettle,
	}
}

// EnsureReliableInit toggles display power off and on three times.
// Only the first call has any effect.
func (r *Reliable) EnsureReliableInit(ctx context.Context) error {
	if r.initialized {
		return nil
	}
	for i := 0; i < powerCycles; i++ {
		r.dev.Power(false)
		if err := r.clock.Sleep(ctx, r.PowerSettle); err != nil {
			return err
		}
		r.dev.Power(true)
		if err := r.clock.Sleep(ctx, r.PowerSettle); err != nil {
			return err
		}
	}
	r.initialized = true
	return nil
}

// Clear blanks both lines and homes the cursor.
func (r *Reliable) Clear(ctx context.Context) error {
	// The controller occasionally misses a single clear.
	r.dev.Clear()
	if err := r.clock.Sleep(ctx, r.ClearSettle); err != nil {
		return err
	}
	r.dev.Clear()
	return r.clock.Sleep(ctx, r.ClearSettle)
}

// ClearPrint leaves row0 on line 0 and row1 on line 1 with the cursor at (0,0).
// Rows wider than the display are truncated.
func (r *Reliable) ClearPrint(ctx context.Context, row0, row1 string) error {
	if err := r.Clear(ctx); err != nil {
		return err
	}

	r.dev.SetCursor(0, 0)
	r.print(row0)
	if err := r.clock.Sleep(ctx, r.RowSettle); err != nil {
		return err
	}
	r.dev.SetCursor(0, 1)
	r.print(row1)
	r.dev.SetCursor(0, 0)
	return nil
}

// Show displays a two-row message.
func (r *Reliable) Show(ctx context.Context, m logic.Message) error {
	return r.ClearPrint(ctx, m.Row0, m.Row1)
}

// print copies text into the row buffer so no allocation happens per redraw.
func (r *Reliable) print(text string) {
	n := copy(r.row[:], text)
	r.dev.Print(r.row[:n])
}
