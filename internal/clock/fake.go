package clock

import (
	"context"
	"time"
)

// Fake is a test double that advances instantly.
type Fake struct {
	// Sleeps contains every requested hold, in order.
	Sleeps []time.Duration

	// CancelAfter, if > 0, makes the Nth Sleep call (1-based) and every later
	// one return context.Canceled, simulating a shutdown signal mid-cycle.
	CancelAfter int

	now time.Time
}

// NewFake creates a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the simulated time.
func (f *Fake) Now() time.Time {
	return f.now
}

// Sleep records d and advances the simulated time by it.
func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.CancelAfter > 0 && len(f.Sleeps)+1 >= f.CancelAfter {
		return context.Canceled
	}
	f.Sleeps = append(f.Sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

// Elapsed returns the sum of all recorded holds.
func (f *Fake) Elapsed() time.Duration {
	var total time.Duration
	for _, d := range f.Sleeps {
		total += d
	}
	return total
}

// Reset clears recorded holds without rewinding the time.
func (f *Fake) Reset() {
	f.Sleeps = nil
	f.CancelAfter = 0
}
