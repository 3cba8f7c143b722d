package domain

// Zone is a named circular geofence around a branch location.
type Zone struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Lat     float64 `json:"latitude"`
	Lng     float64 `json:"longitude"`
	RadiusM float64 `json:"radius_m"`
	Group   string  `json:"group,omitempty"` // owning group, used for notification routing
	Active  bool    `json:"active"`
}

// Membership is the result of matching one ping against the active zones.
// A zero ZoneCode means the ping is outside every zone; DistanceM is then
// the distance to the nearest zone center, or -1 when no zones exist.
type Membership struct {
	ZoneCode  string
	DistanceM float64
}

func (m Membership) Inside() bool { return m.ZoneCode != "" }
