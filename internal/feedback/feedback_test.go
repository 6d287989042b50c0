package feedback

import (
	"sync"
	"testing"

	"levelsense/internal/haptic"
)

type fakeMotor struct {
	mu     sync.Mutex
	pulses []haptic.Strength
	closed bool
}

func (m *fakeMotor) Pulse(s haptic.Strength) {
	m.mu.Lock()
	m.pulses = append(m.pulses, s)
	m.mu.Unlock()
}

func (m *fakeMotor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *fakeMotor) take() []haptic.Strength {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pulses
	m.pulses = nil
	return out
}

func pulsesEqual(a, b []haptic.Strength) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHapticLevelTransitions(t *testing.T) {
	fm := &fakeMotor{}
	c := New(Config{Motor: fm, Sound: true, Mode: ModeBubble})
	defer c.Close()

	// First tick arrives already out of level; no edge yet.
	c.Tick(0.6, 0)
	if got := fm.take(); len(got) != 0 {
		t.Fatalf("pulses on first out-of-level tick: %v", got)
	}

	// Crossing into level fires the strong confirmation pulse.
	c.Tick(0.3, 0.2)
	if got := fm.take(); !pulsesEqual(got, []haptic.Strength{haptic.Strong}) {
		t.Fatalf("pulses on level entry = %v, want [strong]", got)
	}

	// Holding level is quiet.
	c.Tick(0.2, 0.1)
	if got := fm.take(); len(got) != 0 {
		t.Fatalf("pulses while holding level: %v", got)
	}

	// Losing level fires the light warning pulse.
	c.Tick(0.7, 0)
	if got := fm.take(); !pulsesEqual(got, []haptic.Strength{haptic.Light}) {
		t.Fatalf("pulses on level exit = %v, want [light]", got)
	}

	// And re-entry confirms again.
	c.Tick(0.4, 0)
	if got := fm.take(); !pulsesEqual(got, []haptic.Strength{haptic.Strong}) {
		t.Fatalf("pulses on re-entry = %v, want [strong]", got)
	}
}

func TestHapticLevelBoundaryIsStrict(t *testing.T) {
	fm := &fakeMotor{}
	c := New(Config{Motor: fm, Sound: true, Mode: ModeBubble})
	defer c.Close()

	c.Tick(0.6, 0)
	fm.take()

	// Exactly 0.5 deg on an axis is not level, so no entry pulse.
	c.Tick(0.5, 0)
	if got := fm.take(); len(got) != 0 {
		t.Fatalf("pulses at exact threshold: %v", got)
	}
	c.Tick(0.49, 0)
	if got := fm.take(); !pulsesEqual(got, []haptic.Strength{haptic.Strong}) {
		t.Fatalf("pulses just inside threshold = %v, want [strong]", got)
	}
}

func TestHapticPerAxisPulsesOnlyWithSoundOff(t *testing.T) {
	fm := &fakeMotor{}
	c := New(Config{Motor: fm, Sound: false, Mode: ModeBubble})
	defer c.Close()

	c.Tick(0.6, 0.6)
	fm.take()

	// Pitch settles first: a light per-axis pulse, overall still off level.
	c.Tick(0.3, 0.6)
	if got := fm.take(); !pulsesEqual(got, []haptic.Strength{haptic.Light}) {
		t.Fatalf("pulses on pitch settle = %v, want [light]", got)
	}

	// Roll settles next: the overall strong pulse plus the roll axis pulse.
	c.Tick(0.3, 0.3)
	if got := fm.take(); !pulsesEqual(got, []haptic.Strength{haptic.Strong, haptic.Light}) {
		t.Fatalf("pulses on roll settle = %v, want [strong light]", got)
	}
}

func TestHapticPerAxisSuppressedWithSoundOn(t *testing.T) {
	fm := &fakeMotor{}
	c := New(Config{Motor: fm, Sound: true, Mode: ModeBubble})
	defer c.Close()

	c.Tick(0.6, 0.6)
	fm.take()

	c.Tick(0.3, 0.6)
	if got := fm.take(); len(got) != 0 {
		t.Fatalf("per-axis pulse with sound on: %v", got)
	}
	c.Tick(0.3, 0.3)
	if got := fm.take(); !pulsesEqual(got, []haptic.Strength{haptic.Strong}) {
		t.Fatalf("pulses on level entry = %v, want [strong] only", got)
	}
}

func TestSetModeRejectsUnknown(t *testing.T) {
	c := New(Config{Sound: true, Mode: ModeBubble})
	defer c.Close()

	if err := c.SetMode("wall"); err == nil {
		t.Fatalf("SetMode(wall) accepted")
	}
	if got := c.Mode(); got != ModeBubble {
		t.Fatalf("mode after rejected set = %v", got)
	}
	if err := c.SetMode(ModeSurface); err != nil {
		t.Fatalf("SetMode(surface): %v", err)
	}
	if got := c.Mode(); got != ModeSurface {
		t.Fatalf("mode = %v, want surface", got)
	}
}

func TestNewDefaultsInvalidMode(t *testing.T) {
	c := New(Config{Mode: "sideways"})
	defer c.Close()
	if got := c.Mode(); got != ModeBubble {
		t.Fatalf("mode = %v, want bubble default", got)
	}
}

func TestControllerCloseClosesOutputs(t *testing.T) {
	fm := &fakeMotor{}
	fp := newFakePlayer()
	c := New(Config{Motor: fm, Player: fp, Sound: true, Mode: ModeBubble})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	fm.mu.Lock()
	closed := fm.closed
	fm.mu.Unlock()
	if !closed {
		t.Fatalf("motor not closed")
	}
	if !fp.closed {
		t.Fatalf("player not closed")
	}
}

func TestNilControllerIsInert(t *testing.T) {
	var c *Controller
	c.Tick(1, 1)
	c.SetSound(true)
	if err := c.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}
