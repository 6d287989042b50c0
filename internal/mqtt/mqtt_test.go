package mqtt

import (
	"encoding/json"
	"testing"

	"levelsense/internal/feedback"
	"levelsense/internal/level"
)

func TestFormatState(t *testing.T) {
	snap := level.Snapshot{
		Available:   true,
		PitchDeg:    1.25,
		RollDeg:     -0.5,
		Orientation: level.OrientationLandscapeLeft,
		Calibrated:  true,
		IsLevel:     false,
		Color:       level.ColorNear,
		Mode:        feedback.ModeBubble,
		Sound:       true,
		Source:      "imu",
		UpdatedUTC:  "2026-02-02T22:18:12Z",
	}

	payload, err := FormatState(snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed StatePayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Timestamp)
	}
	if parsed.PitchDeg != 1.25 || parsed.RollDeg != -0.5 {
		t.Errorf("unexpected angles: %v %v", parsed.PitchDeg, parsed.RollDeg)
	}
	if parsed.Orientation != "landscapeLeft" {
		t.Errorf("unexpected orientation: %s", parsed.Orientation)
	}
	if parsed.Color != "near" {
		t.Errorf("unexpected color: %s", parsed.Color)
	}
	if !parsed.Calibrated || parsed.IsLevel {
		t.Errorf("unexpected flags: calibrated=%v is_level=%v", parsed.Calibrated, parsed.IsLevel)
	}
	if parsed.Mode != "bubble" {
		t.Errorf("unexpected mode: %s", parsed.Mode)
	}
	if parsed.Source != "imu" {
		t.Errorf("unexpected source: %s", parsed.Source)
	}
}

func TestFormatStateFillsTimestamp(t *testing.T) {
	payload, err := FormatState(level.Snapshot{Available: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed StatePayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Timestamp == "" {
		t.Errorf("timestamp not filled for snapshot without one")
	}
}

func TestFormatEvent(t *testing.T) {
	snap := level.Snapshot{
		Available:  true,
		PitchDeg:   0.25,
		RollDeg:    0.1,
		UpdatedUTC: "2026-02-02T22:18:12Z",
	}

	payload, err := FormatEvent(EventLevel, snap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed EventPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Event != "level" {
		t.Errorf("unexpected event: %s", parsed.Event)
	}
	if parsed.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Timestamp)
	}
	if parsed.PitchDeg != 0.25 || parsed.RollDeg != 0.1 {
		t.Errorf("unexpected angles: %v %v", parsed.PitchDeg, parsed.RollDeg)
	}
}

func TestFakePublisherRecords(t *testing.T) {
	fake := NewFakePublisher()

	if err := fake.PublishState(level.Snapshot{Available: true, Color: level.ColorLevel}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fake.PublishEvent(EventNotLevel, level.Snapshot{Available: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.States) != 1 || len(fake.StatePayloads) != 1 {
		t.Errorf("state not recorded: %d/%d", len(fake.States), len(fake.StatePayloads))
	}
	if len(fake.Events) != 1 || fake.Events[0] != EventNotLevel {
		t.Errorf("event not recorded: %v", fake.Events)
	}
	if err := fake.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fake.Closed {
		t.Errorf("Close not recorded")
	}
}
