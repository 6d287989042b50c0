package buzzer

import (
	"math"
	"time"
)

// PCM rendering constants: 16-bit mono at 44.1 kHz, the lowest common
// denominator for small audio sinks.
const (
	SampleRate = 44100

	// BurstDuration is the fixed length of one tone pulse.
	BurstDuration = 100 * time.Millisecond

	// rampDuration is the linear attack/release applied to each burst so
	// the edges don't click.
	rampDuration = 10 * time.Millisecond

	amplitude = 0.8
)

// Synthesize renders one mono int16 sine burst at freqHz with linear
// attack and release ramps. Pure function; the PCM player and its tests
// share it.
func Synthesize(freqHz float64, d time.Duration) []int16 {
	n := int(float64(SampleRate) * d.Seconds())
	if n <= 0 || freqHz <= 0 {
		return nil
	}
	ramp := int(float64(SampleRate) * rampDuration.Seconds())
	if 2*ramp > n {
		ramp = n / 2
	}
	out := make([]int16, n)
	w := 2 * math.Pi * freqHz / SampleRate
	for i := range out {
		env := 1.0
		if ramp > 0 {
			switch {
			case i < ramp:
				env = float64(i) / float64(ramp)
			case i >= n-ramp:
				env = float64(n-i) / float64(ramp)
			}
		}
		out[i] = int16(math.Round(amplitude * env * 32767 * math.Sin(w*float64(i))))
	}
	return out
}
