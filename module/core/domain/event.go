package domain

import "time"

type EventType string

const (
	EventEnter EventType = "enter"
	EventExit  EventType = "exit"
)

// DeliveryStatus is the durable outbox state of an event's notification.
// pending and failed events remain eligible for the retry sweep; sent is
// terminal.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// GeofenceEvent is the immutable record of one enter or exit transition.
// Only the delivery fields are ever updated after insert, and only by the
// notification dispatcher.
type GeofenceEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"event_type"`
	TrackerID     string         `json:"tracker_id"`
	ZoneCode      string         `json:"zone_code"`
	Lat           float64        `json:"latitude"`
	Lng           float64        `json:"longitude"`
	DistanceM     float64        `json:"distance_m"`
	AccuracyM     float64        `json:"accuracy_m,omitempty"`
	Battery       *float64       `json:"battery_pct,omitempty"`
	OccurredAt    time.Time      `json:"event_time"`
	Short         bool           `json:"short,omitempty"` // exit of a visit below the minimum duration
	CloseReason   CloseReason    `json:"close_reason,omitempty"`
	Delivery      DeliveryStatus `json:"delivery_status"`
	DeliveryError string         `json:"delivery_error,omitempty"`
}
