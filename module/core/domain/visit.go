package domain

import "time"

// CloseReason records why an open visit was closed.
type CloseReason string

const (
	CloseByPing      CloseReason = "ping"        // a later ping placed the tracker outside
	CloseStale       CloseReason = "stale"       // no ping arrived within the silence window
	CloseDeactivated CloseReason = "deactivated" // tracker was deactivated mid-visit
	CloseHealAnomaly CloseReason = "anomaly"     // duplicate open visit closed during self-heal
)

// Visit is one open-or-closed session of a tracker being present in a
// zone. At most one open visit may exist per (tracker, zone) at any
// instant. Visits are never deleted, only closed.
type Visit struct {
	ID          int64       `json:"id"`
	TrackerID   string      `json:"tracker_id"`
	ZoneCode    string      `json:"zone_code"`
	EnteredAt   time.Time   `json:"entered_at"`
	EntryLat    float64     `json:"entry_lat"`
	EntryLng    float64     `json:"entry_lng"`
	LastSeenAt  time.Time   `json:"last_seen_at"`
	ExitedAt    *time.Time  `json:"exited_at,omitempty"`
	ExitLat     *float64    `json:"exit_lat,omitempty"`
	ExitLng     *float64    `json:"exit_lng,omitempty"`
	DurationSec *int64      `json:"duration_sec,omitempty"`
	CloseReason CloseReason `json:"close_reason,omitempty"`
}

func (v *Visit) Open() bool { return v.ExitedAt == nil }
