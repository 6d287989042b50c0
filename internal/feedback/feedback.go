package feedback

import (
	"fmt"
	"math"
	"sync/atomic"

	"levelsense/internal/buzzer"
	"levelsense/internal/haptic"
)

// Thresholds shared by the level decision, the haptic edges and the
// audio range.
const (
	// LevelThresholdDeg bounds |pitch| and |roll| for levelness.
	LevelThresholdDeg = 0.5
	// SoundRangeDeg is the deviation below which beeping is active; it
	// doubles as the outer "near level" display band.
	SoundRangeDeg = 2.0
	// PerfectThresholdDeg marks the dead-on zone, which beeps with its
	// own tone pair and fixed cadence.
	PerfectThresholdDeg = 0.1
)

// Mode selects how the two axis deviations combine into the one value
// the beeper paces itself by.
type Mode string

const (
	// ModeBubble combines both axes into a single radial deviation, like
	// a circular bubble vial.
	ModeBubble Mode = "bubble"
	// ModeSurface tracks the axes independently and beeps for the closer
	// one, for levelling along an edge.
	ModeSurface Mode = "surface"
)

func (m Mode) Valid() bool { return m == ModeBubble || m == ModeSurface }

type Config struct {
	Player buzzer.Player // nil degrades to silent
	Motor  haptic.Driver // nil degrades to no pulses
	Sound  bool
	Mode   Mode
}

// Controller consumes the calibrated angle stream and drives the two
// feedback machines: edge-triggered haptic pulses evaluated inline on
// each tick, and the beeper actor that paces tone bursts off the latest
// deviation snapshot.
type Controller struct {
	player buzzer.Player
	motor  haptic.Driver

	sound atomic.Bool
	mode  atomic.Value // Mode

	// Edge state below belongs to the Tick caller (the pipeline loop)
	// and is not otherwise synchronized.
	wasLevel      bool
	wasPitchLevel bool
	wasRollLevel  bool

	beeper *beeper
}

func New(cfg Config) *Controller {
	if cfg.Player == nil {
		cfg.Player = buzzer.Nop()
	}
	if cfg.Motor == nil {
		cfg.Motor = haptic.Nop()
	}
	if !cfg.Mode.Valid() {
		cfg.Mode = ModeBubble
	}
	c := &Controller{player: cfg.Player, motor: cfg.Motor}
	c.sound.Store(cfg.Sound)
	c.mode.Store(cfg.Mode)
	c.beeper = newBeeper(cfg.Player, cfg.Sound)
	return c
}

// Tick consumes one calibrated sample. Pitch and roll are degrees after
// offset subtraction, full precision.
func (c *Controller) Tick(pitchDeg, rollDeg float64) {
	if c == nil {
		return
	}
	pitchLevel := math.Abs(pitchDeg) < LevelThresholdDeg
	rollLevel := math.Abs(rollDeg) < LevelThresholdDeg
	isLevel := pitchLevel && rollLevel

	switch {
	case isLevel && !c.wasLevel:
		c.motor.Pulse(haptic.Strong)
	case !isLevel && c.wasLevel:
		c.motor.Pulse(haptic.Light)
	}
	if !c.sound.Load() {
		// Without audio, each axis announces its own arrival.
		if pitchLevel && !c.wasPitchLevel {
			c.motor.Pulse(haptic.Light)
		}
		if rollLevel && !c.wasRollLevel {
			c.motor.Pulse(haptic.Light)
		}
	}
	c.wasLevel, c.wasPitchLevel, c.wasRollLevel = isLevel, pitchLevel, rollLevel

	c.beeper.observe(deviationFor(c.Mode(), pitchDeg, rollDeg))
}

func (c *Controller) SetSound(enabled bool) {
	if c == nil {
		return
	}
	c.sound.Store(enabled)
	c.beeper.setEnabled(enabled)
}

func (c *Controller) Sound() bool {
	if c == nil {
		return false
	}
	return c.sound.Load()
}

func (c *Controller) SetMode(m Mode) error {
	if c == nil {
		return nil
	}
	if !m.Valid() {
		return fmt.Errorf("feedback: unknown mode %q", m)
	}
	c.mode.Store(m)
	return nil
}

func (c *Controller) Mode() Mode {
	if c == nil {
		return ModeBubble
	}
	return c.mode.Load().(Mode)
}

// Close stops the beeper actor synchronously and releases the feedback
// hardware. After Close returns no tone or pulse fires.
func (c *Controller) Close() error {
	if c == nil {
		return nil
	}
	c.beeper.stop()
	err := c.player.Close()
	if cerr := c.motor.Close(); err == nil {
		err = cerr
	}
	return err
}

// deviation is the beeper's view of one tick.
type deviation struct {
	value   float64
	inRange bool
}

func (d deviation) perfect() bool { return d.inRange && d.value <= PerfectThresholdDeg }

func deviationFor(m Mode, pitchDeg, rollDeg float64) deviation {
	ap, ar := math.Abs(pitchDeg), math.Abs(rollDeg)
	if m == ModeSurface {
		pitchIn, rollIn := ap < SoundRangeDeg, ar < SoundRangeDeg
		switch {
		case pitchIn && rollIn:
			return deviation{value: math.Min(ap, ar), inRange: true}
		case pitchIn:
			return deviation{value: ap, inRange: true}
		case rollIn:
			return deviation{value: ar, inRange: true}
		default:
			return deviation{}
		}
	}
	mag := math.Hypot(pitchDeg, rollDeg)
	return deviation{value: mag, inRange: mag < SoundRangeDeg}
}
