package domain

// Notification is one rendered alert, addressed to a messaging target.
// Rendering is pure; delivery state lives on the originating event.
type Notification struct {
	EventID string `json:"event_id"`
	Target  string `json:"target"`
	Group   string `json:"group,omitempty"`
	Text    string `json:"text"`
}
