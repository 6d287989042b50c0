package calibration

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Offsets is the persisted zero-point of the level.
//
// Calibrated is an explicit flag, not derived from the offsets: a device
// calibrated while sitting exactly level stores {0,0} with Calibrated
// true, which is distinct from never having been calibrated. Only Reset
// clears the flag.
type Offsets struct {
	Pitch      float64 `yaml:"pitch_offset"`
	Roll       float64 `yaml:"roll_offset"`
	Calibrated bool    `yaml:"calibrated"`
}

// Store holds the calibration offsets and mirrors every change to a YAML
// file so they survive restarts.
type Store struct {
	path string

	mu  sync.RWMutex
	cur Offsets
}

// Open loads the calibration file at path. A missing or malformed file
// yields never-calibrated zero offsets; calibration state must never
// block startup.
func Open(path string) *Store {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("calibration: ignoring %s: %v", path, err)
		}
	}
	return s
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var off Offsets
	if err := yaml.Unmarshal(b, &off); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if !isFinite(off.Pitch) || !isFinite(off.Roll) {
		return fmt.Errorf("non-finite offsets %v, %v", off.Pitch, off.Roll)
	}
	s.mu.Lock()
	s.cur = off
	s.mu.Unlock()
	return nil
}

// Offsets returns the current pitch and roll offsets in degrees.
func (s *Store) Offsets() (pitch, roll float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Pitch, s.cur.Roll
}

func (s *Store) Calibrated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Calibrated
}

func (s *Store) Snapshot() Offsets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Calibrate records the given filtered angles as the new zero point and
// marks the store calibrated, even when both values are exactly zero.
func (s *Store) Calibrate(pitch, roll float64) error {
	return s.write(Offsets{Pitch: pitch, Roll: roll, Calibrated: true})
}

// SetOffsets writes offsets directly, recomputing the calibrated flag as
// "any offset non-zero". Calibrate and Reset are the usual entry points;
// this exists for external writers that patch offsets wholesale.
func (s *Store) SetOffsets(pitch, roll float64) error {
	return s.write(Offsets{Pitch: pitch, Roll: roll, Calibrated: pitch != 0 || roll != 0})
}

// Reset zeroes the offsets and forces the calibrated flag false.
func (s *Store) Reset() error {
	return s.write(Offsets{})
}

func (s *Store) write(off Offsets) error {
	if !isFinite(off.Pitch) || !isFinite(off.Roll) {
		return fmt.Errorf("calibration: non-finite offsets %v, %v", off.Pitch, off.Roll)
	}
	s.mu.Lock()
	s.cur = off
	s.mu.Unlock()
	if err := s.save(off); err != nil {
		return fmt.Errorf("calibration: save %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) save(off Offsets) error {
	b, err := yaml.Marshal(&off)
	if err != nil {
		return err
	}

	// Write atomically to avoid corrupting the file on crash/power loss.
	// Use a temp file in the same directory so os.Rename is atomic.
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
