package models

// Track represents an official circuit the venue runs sessions on
type Track struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}
