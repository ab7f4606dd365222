package models

import "time"

// RigAssignment represents which player currently occupies a simulator rig
type RigAssignment struct {
	RigID       string    `json:"rig_identifier"`
	PlayerName  string    `json:"current_player_name"`
	ContactInfo string    `json:"contact_info,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UnknownRacer is reported when a rig has no player assigned.
const UnknownRacer = "Unknown Racer"
