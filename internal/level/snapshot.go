package level

import (
	"math"

	"levelsense/internal/feedback"
)

// Orientation is the gravity-derived direction the device is held in.
// There is no flat state: when the device lies too flat for gravity to
// disambiguate, the last stable orientation is kept.
type Orientation string

const (
	OrientationPortrait           Orientation = "portrait"
	OrientationPortraitUpsideDown Orientation = "portraitUpsideDown"
	OrientationLandscapeLeft      Orientation = "landscapeLeft"
	OrientationLandscapeRight     Orientation = "landscapeRight"
)

// Color is the tri-state levelness band used by displays.
type Color string

const (
	ColorLevel Color = "level" // both axes within 0.5 deg
	ColorNear  Color = "near"  // worst axis within 2.0 deg
	ColorOff   Color = "off"
)

// Snapshot is the published pipeline state. Angle fields are rounded to
// two decimals here; the unrounded values stay internal to the loop.
type Snapshot struct {
	Available   bool          `json:"available"`
	PitchDeg    float64       `json:"pitch_deg"`
	RollDeg     float64       `json:"roll_deg"`
	Orientation Orientation   `json:"orientation"`
	Calibrated  bool          `json:"calibrated"`
	IsLevel     bool          `json:"is_level"`
	Color       Color         `json:"color"`
	Mode        feedback.Mode `json:"mode"`
	Sound       bool          `json:"sound"`
	Source      string        `json:"source,omitempty"`
	UpdatedUTC  string        `json:"updated_utc,omitempty"`
}

// levelFor decides levelness on the unrounded calibrated angles. The
// threshold is strict: exactly 0.5 deg is not level.
func levelFor(pitchDeg, rollDeg float64) bool {
	return math.Abs(pitchDeg) < feedback.LevelThresholdDeg &&
		math.Abs(rollDeg) < feedback.LevelThresholdDeg
}

// colorFor bands the unrounded calibrated angles.
func colorFor(isLevel bool, pitchDeg, rollDeg float64) Color {
	if isLevel {
		return ColorLevel
	}
	if math.Max(math.Abs(pitchDeg), math.Abs(rollDeg)) < feedback.SoundRangeDeg {
		return ColorNear
	}
	return ColorOff
}
