package models

import (
	"fmt"
	"time"
)

// LapTime represents a single recorded lap on a track
type LapTime struct {
	ID         int64     `json:"id"`
	PlayerName string    `json:"player_name"`
	TrackName  string    `json:"track_name"`
	RigID      string    `json:"rig_identifier"`
	LapTimeMS  int64     `json:"lap_time_ms"`
	RecordedAt time.Time `json:"timestamp"`
}

// Formatted returns the lap time as MM:SS.mmm.
func (l LapTime) Formatted() string {
	return FormatLapTime(l.LapTimeMS)
}

// FormatLapTime renders milliseconds as MM:SS.mmm for display surfaces.
func FormatLapTime(ms int64) string {
	if ms <= 0 {
		return "00:00.000"
	}
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}
