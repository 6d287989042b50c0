package sensor

import "math"

// Mount describes how the board is fixed to the thing being levelled.
type Mount string

const (
	// MountFlat lies on the surface, accelerometer z axis vertical.
	MountFlat Mount = "flat"
	// MountUpright stands against the surface, y axis vertical.
	MountUpright Mount = "upright"
)

// TiltFromAccel converts one accelerometer reading (any consistent unit)
// into pitch/roll in degrees plus the normalized gravity direction.
//
// Gravity follows the usual motion-service convention: upright in
// portrait reads ≈ (0,-1,0), lying face-up reads ≈ (0,0,-1). ok is
// false for a zero-magnitude reading, which callers should skip.
func TiltFromAccel(ax, ay, az float64, m Mount) (pitchDeg, rollDeg float64, gravity [3]float64, ok bool) {
	norm := math.Sqrt(ax*ax + ay*ay + az*az)
	if norm == 0 {
		return 0, 0, [3]float64{}, false
	}
	gravity = [3]float64{-ax / norm, -ay / norm, -az / norm}

	var pitchRad, rollRad float64
	switch m {
	case MountUpright:
		// Wall mount: the flat mapping rotated onto the vertical plane.
		pitchRad = math.Atan2(-az, math.Sqrt(ax*ax+ay*ay))
		rollRad = math.Atan2(ax, ay)
	default:
		pitchRad = math.Atan2(-ax, math.Sqrt(ay*ay+az*az))
		rollRad = math.Atan2(ay, az)
	}
	return pitchRad * 180 / math.Pi, rollRad * 180 / math.Pi, gravity, true
}
