package sensor

import (
	"context"
	"errors"
	"time"
)

// SampleInterval is the fixed sampling cadence shared by every source.
// The angle filter's smoothing coefficient is tuned to this rate, so the
// interval is a constant rather than configuration.
const SampleInterval = 10 * time.Millisecond

// Sample is one raw attitude reading. Pitch and roll are in degrees.
// Gravity is a unit-norm vector in the device frame; sources that cannot
// observe gravity directly (demo, replay, NMEA) leave it nil.
type Sample struct {
	Pitch   float64
	Roll    float64
	Gravity *[3]float64
	When    time.Time
}

// Source produces samples at SampleInterval until ctx is cancelled.
//
// Run blocks for the lifetime of the source and calls emit from the
// source's own goroutine. Cancellation via ctx returns nil. A source
// whose hardware cannot be opened returns ErrUnavailable without ever
// calling emit; sensor unavailability is permanent within a session.
type Source interface {
	Run(ctx context.Context, emit func(Sample)) error
	Describe() string
}

// ErrUnavailable reports that a source's underlying device is absent or
// could not be opened.
var ErrUnavailable = errors.New("sensor: unavailable")
