package calibration

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func tempStorePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "calibration.yaml")
}

func TestOpenMissingFile(t *testing.T) {
	s := Open(tempStorePath(t))
	pitch, roll := s.Offsets()
	if pitch != 0 || roll != 0 {
		t.Fatalf("offsets = (%v,%v), want (0,0)", pitch, roll)
	}
	if s.Calibrated() {
		t.Fatalf("Calibrated = true for missing file, want false")
	}
}

func TestCalibratePersistsAcrossReopen(t *testing.T) {
	path := tempStorePath(t)

	s := Open(path)
	if err := s.Calibrate(1.25, -0.75); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}

	s2 := Open(path)
	pitch, roll := s2.Offsets()
	if pitch != 1.25 || roll != -0.75 {
		t.Fatalf("reloaded offsets = (%v,%v), want (1.25,-0.75)", pitch, roll)
	}
	if !s2.Calibrated() {
		t.Fatalf("Calibrated = false after reload, want true")
	}
}

func TestCalibrateAtExactZeroKeepsFlag(t *testing.T) {
	path := tempStorePath(t)

	s := Open(path)
	if err := s.Calibrate(0, 0); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if !s.Calibrated() {
		t.Fatalf("Calibrated = false after zero calibrate, want true")
	}

	// The flag must survive a restart too.
	s2 := Open(path)
	if !s2.Calibrated() {
		t.Fatalf("Calibrated = false after reload of zero calibrate, want true")
	}
	if err := s2.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s2.Calibrated() {
		t.Fatalf("Calibrated = true after Reset, want false")
	}
}

func TestResetClearsEverything(t *testing.T) {
	path := tempStorePath(t)
	s := Open(path)
	if err := s.Calibrate(3, 4); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	pitch, roll := s.Offsets()
	if pitch != 0 || roll != 0 || s.Calibrated() {
		t.Fatalf("after Reset: offsets=(%v,%v) calibrated=%v, want zeros and false", pitch, roll, s.Calibrated())
	}

	s2 := Open(path)
	if s2.Calibrated() {
		t.Fatalf("Calibrated = true after reload of Reset, want false")
	}
}

func TestSetOffsetsRecomputesFlag(t *testing.T) {
	s := Open(tempStorePath(t))
	if err := s.SetOffsets(0.5, 0); err != nil {
		t.Fatalf("SetOffsets: %v", err)
	}
	if !s.Calibrated() {
		t.Fatalf("Calibrated = false after non-zero SetOffsets, want true")
	}
	if err := s.SetOffsets(0, 0); err != nil {
		t.Fatalf("SetOffsets: %v", err)
	}
	if s.Calibrated() {
		t.Fatalf("Calibrated = true after zero SetOffsets, want false")
	}
}

func TestOpenMalformedFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not yaml", content: "{{{\n"},
		{name: "non-finite", content: "pitch_offset: .nan\nroll_offset: 0\ncalibrated: true\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := tempStorePath(t)
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			s := Open(path)
			pitch, roll := s.Offsets()
			if pitch != 0 || roll != 0 || s.Calibrated() {
				t.Fatalf("malformed file not treated as never-calibrated: (%v,%v,%v)", pitch, roll, s.Calibrated())
			}
		})
	}
}

func TestRejectNonFiniteWrites(t *testing.T) {
	s := Open(tempStorePath(t))
	if err := s.Calibrate(math.NaN(), 0); err == nil {
		t.Fatalf("Calibrate(NaN) succeeded, want error")
	}
	if err := s.SetOffsets(0, math.Inf(1)); err == nil {
		t.Fatalf("SetOffsets(+Inf) succeeded, want error")
	}
}
