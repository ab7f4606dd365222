package gateway

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of display event pushed to leaderboard screens
type EventType string

const (
	EventTypeDisplayChanged EventType = "DisplayChanged"
	EventTypeLapRecorded    EventType = "LapRecorded"
	EventTypeTimerExpired   EventType = "TimerExpired"
)

// DisplayEvent is the envelope broadcast over the display websocket. Screens
// treat any event as a hint to re-poll the current leaderboard; Data carries
// enough context to skip the poll for simple updates.
type DisplayEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewDisplayEvent builds an event with a fresh id, marshalling the payload.
func NewDisplayEvent(eventType EventType, payload any) *DisplayEvent {
	var data json.RawMessage
	if payload != nil {
		data, _ = json.Marshal(payload)
	}
	return &DisplayEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// DisplayChangedPayload reports which track the display should now show.
type DisplayChangedPayload struct {
	TrackName        string `json:"track_name"`
	AutoCycleEnabled bool   `json:"auto_cycle_enabled"`
}

// LapRecordedPayload reports a freshly ingested lap.
type LapRecordedPayload struct {
	RigID      string `json:"rig_identifier"`
	TrackName  string `json:"track_name"`
	PlayerName string `json:"player_name"`
	LapTimeMS  int64  `json:"lap_time_ms"`
}

// TimerExpiredPayload reports a rig whose session countdown ran out.
type TimerExpiredPayload struct {
	RigID string `json:"rig_identifier"`
}
