package level

import "math"

// flatZThreshold: above this |z| gravity runs too nearly through the
// screen to tell portrait from landscape, so the classifier holds.
const flatZThreshold = 0.85

// hysteresisMargin is sin(1.5 deg). The dominant gravity axis must beat
// the other by this much before the orientation flips, which stops
// flicker when the device sits near a 45 degree diagonal.
var hysteresisMargin = math.Sin(1.5 * math.Pi / 180)

// classifier maps gravity vectors to orientations with hysteresis. It
// is a pure function of (gravity, lastStable); no timing involved.
type classifier struct {
	lastStable Orientation
}

func newClassifier() classifier {
	return classifier{lastStable: OrientationPortrait}
}

func (c *classifier) classify(g [3]float64) Orientation {
	if math.Abs(g[2]) > flatZThreshold {
		return c.lastStable
	}
	ax, ay := math.Abs(g[0]), math.Abs(g[1])
	switch {
	case ax > ay+hysteresisMargin:
		if g[0] < 0 {
			c.lastStable = OrientationLandscapeLeft
		} else {
			c.lastStable = OrientationLandscapeRight
		}
	case ay > ax+hysteresisMargin:
		if g[1] < 0 {
			c.lastStable = OrientationPortrait
		} else {
			c.lastStable = OrientationPortraitUpsideDown
		}
	}
	return c.lastStable
}
