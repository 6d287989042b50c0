package level

import "math"

// filterAlpha is the EWMA coefficient for the angle low-pass. It is
// tuned against the fixed 100 Hz sample cadence; if the cadence ever
// changes this must be retuned with it.
const filterAlpha = 0.15

// angleFilter is a single-pole low-pass over pitch and roll. State
// keeps full float64 precision; rounding happens only at publication.
type angleFilter struct {
	pitch float64
	roll  float64
	have  bool
}

// update folds one raw sample in. The first sample seeds the state
// directly so startup does not ramp from zero.
func (f *angleFilter) update(pitchDeg, rollDeg float64) {
	if !f.have {
		f.pitch, f.roll = pitchDeg, rollDeg
		f.have = true
		return
	}
	f.pitch += filterAlpha * (pitchDeg - f.pitch)
	f.roll += filterAlpha * (rollDeg - f.roll)
}

// round2 rounds to two decimals so the displayed last digit does not
// flicker with sensor noise.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
