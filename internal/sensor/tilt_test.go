package sensor

import (
	"math"
	"testing"
)

func TestTiltFromAccelFlat(t *testing.T) {
	tests := []struct {
		name       string
		ax, ay, az float64
		wantPitch  float64
		wantRoll   float64
	}{
		{name: "level", ax: 0, ay: 0, az: 1, wantPitch: 0, wantRoll: 0},
		{name: "pitched 10", ax: -math.Sin(10 * math.Pi / 180), ay: 0, az: math.Cos(10 * math.Pi / 180), wantPitch: 10, wantRoll: 0},
		{name: "rolled -10", ax: 0, ay: -math.Sin(10 * math.Pi / 180), az: math.Cos(10 * math.Pi / 180), wantPitch: 0, wantRoll: -10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pitch, roll, gravity, ok := TiltFromAccel(tc.ax, tc.ay, tc.az, MountFlat)
			if !ok {
				t.Fatalf("ok = false, want true")
			}
			if math.Abs(pitch-tc.wantPitch) > 1e-9 || math.Abs(roll-tc.wantRoll) > 1e-9 {
				t.Fatalf("tilt = (%v,%v), want (%v,%v)", pitch, roll, tc.wantPitch, tc.wantRoll)
			}
			norm := math.Sqrt(gravity[0]*gravity[0] + gravity[1]*gravity[1] + gravity[2]*gravity[2])
			if math.Abs(norm-1) > 1e-9 {
				t.Fatalf("gravity norm = %v, want 1", norm)
			}
		})
	}
}

func TestTiltFromAccelGravityConvention(t *testing.T) {
	// Lying face-up the gravity z component must be strongly negative,
	// standing upright the y component must be strongly negative.
	_, _, g, ok := TiltFromAccel(0, 0, 1, MountFlat)
	if !ok || g[2] > -0.99 {
		t.Fatalf("face-up gravity = %v, want z near -1", g)
	}
	_, _, g, ok = TiltFromAccel(0, 1, 0, MountUpright)
	if !ok || g[1] > -0.99 {
		t.Fatalf("upright gravity = %v, want y near -1", g)
	}
}

func TestTiltFromAccelUpright(t *testing.T) {
	pitch, roll, _, ok := TiltFromAccel(0, 1, 0, MountUpright)
	if !ok {
		t.Fatalf("ok = false, want true")
	}
	if math.Abs(pitch) > 1e-9 || math.Abs(roll) > 1e-9 {
		t.Fatalf("upright level tilt = (%v,%v), want (0,0)", pitch, roll)
	}
}

func TestTiltFromAccelZeroVector(t *testing.T) {
	if _, _, _, ok := TiltFromAccel(0, 0, 0, MountFlat); ok {
		t.Fatalf("ok = true for zero vector, want false")
	}
}
