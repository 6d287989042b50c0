// Package mqtt mirrors pipeline state onto an MQTT broker so home
// automation can react to the device without polling the HTTP API.
package mqtt

import (
	"encoding/json"
	"time"

	"levelsense/internal/level"
)

// Topic suffixes under the configured prefix. State is retained so a
// late subscriber immediately sees the current reading; events are
// fire-once edges.
const (
	StateSuffix = "/state"
	EventSuffix = "/event"
)

// Event names the edge transitions published to the event topic.
type Event string

const (
	EventLevel            Event = "level"
	EventNotLevel         Event = "not_level"
	EventCalibrated       Event = "calibrated"
	EventCalibrationReset Event = "calibration_reset"
)

// Publisher publishes pipeline state to a broker. Implementations must
// not crash the process on broker trouble; errors are reported to the
// caller for logging.
type Publisher interface {
	// PublishState sends the retained state document.
	PublishState(snap level.Snapshot) error

	// PublishEvent sends a transition event.
	PublishEvent(event Event, snap level.Snapshot) error

	// Close disconnects from the broker.
	Close() error
}

// StatePayload is the retained state document.
type StatePayload struct {
	Timestamp   string  `json:"timestamp"`
	PitchDeg    float64 `json:"pitch_deg"`
	RollDeg     float64 `json:"roll_deg"`
	Orientation string  `json:"orientation"`
	Color       string  `json:"color"`
	IsLevel     bool    `json:"is_level"`
	Calibrated  bool    `json:"calibrated"`
	Mode        string  `json:"mode"`
	Sound       bool    `json:"sound"`
	Source      string  `json:"source,omitempty"`
}

// FormatState creates the JSON payload for the state topic.
func FormatState(snap level.Snapshot) ([]byte, error) {
	return json.Marshal(StatePayload{
		Timestamp:   snapshotTime(snap),
		PitchDeg:    snap.PitchDeg,
		RollDeg:     snap.RollDeg,
		Orientation: string(snap.Orientation),
		Color:       string(snap.Color),
		IsLevel:     snap.IsLevel,
		Calibrated:  snap.Calibrated,
		Mode:        string(snap.Mode),
		Sound:       snap.Sound,
		Source:      snap.Source,
	})
}

// EventPayload is the event topic document.
type EventPayload struct {
	Timestamp string  `json:"timestamp"`
	Event     string  `json:"event"`
	PitchDeg  float64 `json:"pitch_deg"`
	RollDeg   float64 `json:"roll_deg"`
}

// FormatEvent creates the JSON payload for a transition event.
func FormatEvent(event Event, snap level.Snapshot) ([]byte, error) {
	return json.Marshal(EventPayload{
		Timestamp: snapshotTime(snap),
		Event:     string(event),
		PitchDeg:  snap.PitchDeg,
		RollDeg:   snap.RollDeg,
	})
}

func snapshotTime(snap level.Snapshot) string {
	if snap.UpdatedUTC != "" {
		return snap.UpdatedUTC
	}
	return time.Now().UTC().Format(time.RFC3339Nano)
}
