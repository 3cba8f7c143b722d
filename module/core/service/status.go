package service

import (
	"context"
	"time"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/cache"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

// StatusService backs the read-only HTTP surface.
type StatusService struct {
	trackers  database.TrackerRepository
	visits    database.VisitRepository
	events    database.EventRepository
	presence  cache.PresenceCache
	snapshots *SnapshotService
}

func NewStatusService(
	trackers database.TrackerRepository,
	visits database.VisitRepository,
	events database.EventRepository,
	presence cache.PresenceCache,
	snapshots *SnapshotService,
) *StatusService {
	return &StatusService{
		trackers:  trackers,
		visits:    visits,
		events:    events,
		presence:  presence,
		snapshots: snapshots,
	}
}

func (s *StatusService) Trackers(ctx context.Context) ([]domain.Tracker, error) {
	return s.trackers.List(ctx)
}

func (s *StatusService) Presence(ctx context.Context, trackerID string) (*domain.Presence, error) {
	return s.presence.Get(ctx, trackerID)
}

func (s *StatusService) Visits(ctx context.Context, trackerID string, limit int) ([]domain.Visit, error) {
	return s.visits.ListByTracker(ctx, trackerID, limit)
}

func (s *StatusService) RecentEvents(ctx context.Context, since time.Time, limit int) ([]domain.GeofenceEvent, error) {
	return s.events.ListRecent(ctx, since, limit)
}

func (s *StatusService) Zones() []domain.Zone {
	return s.snapshots.Current().Zones
}
