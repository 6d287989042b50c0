package sensor

import (
	"context"
	"math"
	"time"
)

const (
	demoAmplitudeDeg = 5.0
	demoPitchRateRad = 0.7
	demoRollRateRad  = 0.9
)

// DemoAngles returns the synthetic trajectory at elapsed time t seconds.
// Pure function of t: replaying the same instant yields identical angles.
func DemoAngles(t float64) (pitchDeg, rollDeg float64) {
	pitchDeg = demoAmplitudeDeg * math.Sin(demoPitchRateRad*t)
	rollDeg = demoAmplitudeDeg * math.Cos(demoRollRateRad*t)
	return pitchDeg, rollDeg
}

// Demo generates a slow wobble around level, for running without an IMU.
// It emits no gravity vector, so orientation classification stays at its
// initial value in demo mode.
type Demo struct{}

func (Demo) Describe() string { return "demo" }

func (Demo) Run(ctx context.Context, emit func(Sample)) error {
	start := time.Now()
	tick := time.NewTicker(SampleInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-tick.C:
			p, r := DemoAngles(now.Sub(start).Seconds())
			emit(Sample{Pitch: p, Roll: r, When: now})
		}
	}
}
