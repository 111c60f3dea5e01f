package gpio

import "time"

// Transition is one recorded Set call.
type Transition struct {
	High bool
	At   time.Time
}

// FakeOutput is a test double that records every Set call.
type FakeOutput struct {
	// High is the current line level.
	High bool

	// Transitions contains every Set call, in order.
	Transitions []Transition

	// Now, if set, timestamps transitions. Tests usually pass a fake clock's Now.
	Now func() time.Time

	// SetError, if set, will be returned by Set (and the level is left unchanged).
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeOutput creates a FakeOutput, initially low.
func NewFakeOutput(now func() time.Time) *FakeOutput {
	return &FakeOutput{Now: now}
}

// Set records the new level.
func (f *FakeOutput) Set(high bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	var at time.Time
	if f.Now != nil {
		at = f.Now()
	}
	f.High = high
	f.Transitions = append(f.Transitions, Transition{High: high, At: at})
	return nil
}

// Close drives the line low and marks the output as closed.
func (f *FakeOutput) Close() error {
	f.High = false
	f.Closed = true
	return nil
}

// HighDurations returns how long the line stayed high for each high period
// that has ended, in order.
func (f *FakeOutput) HighDurations() []time.Duration {
	var out []time.Duration
	var since time.Time
	high := false
	for _, tr := range f.Transitions {
		switch {
		case tr.High && !high:
			since = tr.At
			high = true
		case !tr.High && high:
			out = append(out, tr.At.Sub(since))
			high = false
		}
	}
	return out
}

// Reset clears recorded transitions and drives the line low.
func (f *FakeOutput) Reset() {
	f.High = false
	f.Transitions = nil
	f.SetError = nil
	f.Closed = false
}
