package database

import (
	"context"
	"errors"
	"time"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type TrackerRepository interface {
	Get(ctx context.Context, trackerID string) (*domain.Tracker, error)
	List(ctx context.Context) ([]domain.Tracker, error)
}

type ZoneRepository interface {
	ListActive(ctx context.Context) ([]domain.Zone, error)
}

type SettingsRepository interface {
	Load(ctx context.Context) (domain.Settings, error)
}

// VisitRepository persists visits and the events derived from them. The
// WithEvent methods apply the visit mutation and insert the event in a
// single transaction so a transition is never half-recorded.
type VisitRepository interface {
	OpenVisits(ctx context.Context, trackerID string) ([]domain.Visit, error)
	OpenWithEvent(ctx context.Context, visit *domain.Visit, event *domain.GeofenceEvent) error
	CloseWithEvent(ctx context.Context, visit *domain.Visit, event *domain.GeofenceEvent) error
	Touch(ctx context.Context, visitID int64, seenAt time.Time) error
	ListByTracker(ctx context.Context, trackerID string, limit int) ([]domain.Visit, error)
	StaleOpen(ctx context.Context, cutoff time.Time) ([]domain.Visit, error)
	OpenForInactiveTrackers(ctx context.Context) ([]domain.Visit, error)
}

type EventRepository interface {
	ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.GeofenceEvent, error)
	Undelivered(ctx context.Context, since time.Time, limit int) ([]domain.GeofenceEvent, error)
	DeliveryStatus(ctx context.Context, eventID string) (domain.DeliveryStatus, error)
	MarkSent(ctx context.Context, eventID string) error
	MarkFailed(ctx context.Context, eventID, lastError string) error
}
