// Package ble broadcasts level state as BLE advertisement manufacturer
// data so nearby phones can read the device without pairing or a
// connection.
package ble

import (
	"encoding/binary"
	"math"

	"levelsense/internal/level"
)

// CompanyID is the Bluetooth SIG reserved test id. The payload format
// is not registered anywhere; listeners match on the version byte.
const CompanyID = 0xFFFF

// FrameVersion identifies the payload layout.
const FrameVersion = 1

// Payload flag bits.
const (
	FlagLevel      = 1 << 0
	FlagCalibrated = 1 << 1
)

// Frame packs a snapshot into the 6-byte advertisement payload:
// version, flags, then pitch and roll as little-endian int16
// centidegrees. Angles outside the int16 range clamp.
func Frame(snap level.Snapshot) []byte {
	var flags byte
	if snap.IsLevel {
		flags |= FlagLevel
	}
	if snap.Calibrated {
		flags |= FlagCalibrated
	}

	buf := make([]byte, 6)
	buf[0] = FrameVersion
	buf[1] = flags
	binary.LittleEndian.PutUint16(buf[2:4], uint16(centidegrees(snap.PitchDeg)))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(centidegrees(snap.RollDeg)))
	return buf
}

func centidegrees(deg float64) int16 {
	v := math.Round(deg * 100)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}
