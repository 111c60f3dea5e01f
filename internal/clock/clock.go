// Package clock provides the time source and blocking holds used by the
// irrigation cycle. The real implementation sleeps; the fake one advances
// instantly and records every hold so a full day can be simulated in tests.
package clock

import (
	"context"
	"time"
)

// Clock tells the time and blocks for fixed holds.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks for d. It returns ctx.Err() if ctx is done first.
	Sleep(ctx context.Context, d time.Duration) error
}

// Real is the wall clock.
type Real struct{}

// Now returns time.Now().
func (Real) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done.
func (Real) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
