package level

import (
	"math"
	"testing"
)

func TestFilterSeedsOnFirstSample(t *testing.T) {
	var f angleFilter
	f.update(3.2, -1.7)
	if f.pitch != 3.2 || f.roll != -1.7 {
		t.Fatalf("got=(%v,%v) want=(3.2,-1.7)", f.pitch, f.roll)
	}
	if !f.have {
		t.Fatalf("have not set")
	}
}

func TestFilterStep(t *testing.T) {
	var f angleFilter
	f.update(1, 0)
	f.update(2, 0)
	if math.Abs(f.pitch-1.15) > 1e-12 {
		t.Fatalf("pitch=%v want=1.15", f.pitch)
	}
}

// Step response: seeded at 0, a constant 10 deg input settles to within
// 0.01 deg after 57 smoothing ticks but not after 42.
func TestFilterConvergence(t *testing.T) {
	var f angleFilter
	f.update(0, 0)
	for i := 0; i < 42; i++ {
		f.update(10, 10)
	}
	if math.Abs(10-f.pitch) <= 0.01 {
		t.Fatalf("converged too early: pitch=%v after 42 ticks", f.pitch)
	}
	for i := 0; i < 15; i++ {
		f.update(10, 10)
	}
	if math.Abs(10-f.pitch) > 0.01 {
		t.Fatalf("not converged: pitch=%v after 57 ticks", f.pitch)
	}
	if math.Abs(10-f.roll) > 0.01 {
		t.Fatalf("not converged: roll=%v after 57 ticks", f.roll)
	}
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.234, 1.23},
		{1.236, 1.24},
		{0.125, 0.13}, // halves round away from zero
		{-0.125, -0.13},
		{-0.004, 0},
		{0, 0},
	}
	for _, tc := range tests {
		if got := round2(tc.in); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("round2(%v)=%v want=%v", tc.in, got, tc.want)
		}
	}
}
