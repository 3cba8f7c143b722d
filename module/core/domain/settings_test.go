package domain

import (
	"testing"
	"time"
)

func TestWithinWorkHours(t *testing.T) {
	s := DefaultSettings() // 08:00-20:00 America/Mexico_City (UTC-6)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"noon local", time.Date(2024, 5, 6, 18, 0, 0, 0, time.UTC), true},
		{"just after open", time.Date(2024, 5, 6, 14, 1, 0, 0, time.UTC), true},
		{"before open", time.Date(2024, 5, 6, 13, 0, 0, 0, time.UTC), false},
		{"at close", time.Date(2024, 5, 7, 2, 0, 0, 0, time.UTC), false},
		{"midnight local", time.Date(2024, 5, 6, 6, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.WithinWorkHours(tc.at); got != tc.want {
				t.Errorf("WithinWorkHours(%v) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestWithinWorkHours_OvernightWindow(t *testing.T) {
	s := DefaultSettings()
	s.WorkHoursStart = "22:00"
	s.WorkHoursEnd = "06:00"

	// 23:00 local
	if !s.WithinWorkHours(time.Date(2024, 5, 7, 5, 0, 0, 0, time.UTC)) {
		t.Error("23:00 must be inside an overnight window")
	}
	// 12:00 local
	if s.WithinWorkHours(time.Date(2024, 5, 6, 18, 0, 0, 0, time.UTC)) {
		t.Error("noon must be outside an overnight window")
	}
}

func TestWithinWorkHours_UnparseableWindowIsOpen(t *testing.T) {
	s := DefaultSettings()
	s.WorkHoursStart = "bogus"

	if !s.WithinWorkHours(time.Now()) {
		t.Error("an unparseable window must not reject pings")
	}
}
