package domain

import "time"

// Ping is one reported GPS fix from a tracker device. It is never stored
// on its own; it is either folded into a visit or discarded.
type Ping struct {
	TrackerID  string    `json:"tracker_id"`
	Lat        float64   `json:"latitude"`
	Lng        float64   `json:"longitude"`
	AccuracyM  float64   `json:"accuracy,omitempty"` // meters, 0 = unknown
	Battery    *float64  `json:"battery,omitempty"`  // percent
	Velocity   *float64  `json:"velocity,omitempty"` // km/h
	ReportedAt time.Time `json:"timestamp"`
}

// RejectionReason classifies why a ping was skipped. Rejections are
// expected and non-fatal; they are returned to the caller, never raised.
type RejectionReason string

const (
	RejectMissingIdentity    RejectionReason = "missing_identity"
	RejectInvalidCoordinates RejectionReason = "invalid_coordinates"
	RejectMissingTimestamp   RejectionReason = "missing_timestamp"
	RejectFutureTimestamp    RejectionReason = "future_timestamp"
	RejectStaleTimestamp     RejectionReason = "stale_timestamp"
	RejectUnknownIdentity    RejectionReason = "unknown_identity"
	RejectSystemPaused       RejectionReason = "system_paused"
	RejectOutsideWorkHours   RejectionReason = "outside_work_hours"
	RejectLowAccuracy        RejectionReason = "low_accuracy"
	RejectProcessingTimeout  RejectionReason = "processing_timeout"
)

var rejectionMessages = map[RejectionReason]string{
	RejectMissingIdentity:    "tracker identifier is missing",
	RejectInvalidCoordinates: "latitude or longitude is missing or out of range",
	RejectMissingTimestamp:   "reporting timestamp is missing",
	RejectFutureTimestamp:    "reporting timestamp is too far in the future",
	RejectStaleTimestamp:     "reporting timestamp is too old",
	RejectUnknownIdentity:    "tracker is unknown or inactive",
	RejectSystemPaused:       "tracking is paused",
	RejectOutsideWorkHours:   "outside working hours",
	RejectLowAccuracy:        "GPS accuracy is worse than the configured maximum",
	RejectProcessingTimeout:  "processing timed out",
}

// Message returns the short human-readable reason surfaced to the
// protocol adapter.
func (r RejectionReason) Message() string {
	if m, ok := rejectionMessages[r]; ok {
		return m
	}
	return string(r)
}

// Result is the outcome of submitting one ping.
type Result struct {
	Processed bool            `json:"processed"`
	Skipped   bool            `json:"skipped,omitempty"`
	Reason    RejectionReason `json:"reason,omitempty"`
	Events    []GeofenceEvent `json:"-"`
}

func Accepted(events []GeofenceEvent) *Result {
	return &Result{Processed: true, Events: events}
}

func Rejected(reason RejectionReason) *Result {
	return &Result{Skipped: true, Reason: reason}
}
