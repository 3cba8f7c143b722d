package domain

import (
	"fmt"
	"time"
)

// Settings is an immutable snapshot of the operational parameters stored
// by the administrative collaborator. A fresh snapshot is passed by value
// into each processing call; nothing reads it as ambient global state.
type Settings struct {
	SystemActive     bool
	WorkHoursStart   string // "HH:MM" in Timezone
	WorkHoursEnd     string
	Timezone         string
	DefaultRadiusM   float64
	MinVisitDuration time.Duration
	MaxAccuracyM     float64 // 0 disables the accuracy check
	FutureTolerance  time.Duration
	MaxPingAge       time.Duration
	VisitStaleAfter  time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		SystemActive:     true,
		WorkHoursStart:   "08:00",
		WorkHoursEnd:     "20:00",
		Timezone:         "America/Mexico_City",
		DefaultRadiusM:   100,
		MinVisitDuration: 5 * time.Minute,
		MaxAccuracyM:     100,
		FutureTolerance:  5 * time.Minute,
		MaxPingAge:       7 * 24 * time.Hour,
		VisitStaleAfter:  6 * time.Hour,
	}
}

// WithinWorkHours reports whether t falls inside the configured daily
// window, evaluated in the business timezone. An unparseable window is
// treated as always open rather than rejecting every ping.
func (s Settings) WithinWorkHours(t time.Time) bool {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := t.In(loc)

	start, err1 := minuteOfDay(s.WorkHoursStart)
	end, err2 := minuteOfDay(s.WorkHoursEnd)
	if err1 != nil || err2 != nil {
		return true
	}

	now := local.Hour()*60 + local.Minute()
	if start <= end {
		return now >= start && now < end
	}
	// window crosses midnight
	return now >= start || now < end
}

func minuteOfDay(hhmm string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time of day %q", hhmm)
	}
	return h*60 + m, nil
}
