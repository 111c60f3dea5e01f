package sensor

import (
	"errors"

	"github.com/sweeney/plant-irrigator/internal/logic"
)

// FakeReader replays scripted samples, one per Read. Once the script runs
// out the last sample repeats, so a one-sample script models a steady plant.
type FakeReader struct {
	Samples   []logic.Sample
	ReadError error // returned by every Read when set

	Reads  int // calls to Read, including failed ones
	Closed bool

	next int
}

// NewFakeReader creates a FakeReader that plays samples in order.
func NewFakeReader(samples ...logic.Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (logic.Sample, error) {
	f.Reads++
	switch {
	case f.ReadError != nil:
		return logic.Sample{}, f.ReadError
	case len(f.Samples) == 0:
		return logic.Sample{}, errors.New("sensor: no samples scripted")
	}

	s := f.Samples[f.next]
	if f.next < len(f.Samples)-1 {
		f.next++
	}
	return s, nil
}

// Close records the call.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
