package domain

import "time"

// Tracker identifies a field person/device. Trackers are managed by an
// external collaborator; this service only reads them.
type Tracker struct {
	ID           string `json:"tracker_id"`
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	NotifyTarget string `json:"notify_target,omitempty"` // messaging handle, empty = use fallback
}

// Presence is the live position of a tracker, kept in the realtime cache.
type Presence struct {
	TrackerID string    `json:"tracker_id"`
	Lat       float64   `json:"latitude"`
	Lng       float64   `json:"longitude"`
	AccuracyM float64   `json:"accuracy,omitempty"`
	Battery   *float64  `json:"battery,omitempty"`
	ZoneCode  string    `json:"zone_code,omitempty"`
	SeenAt    time.Time `json:"seen_at"`
}
