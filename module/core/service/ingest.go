package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/cache"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

const defaultPersistTimeout = 10 * time.Second

// eventSink receives emitted events for asynchronous notification
// delivery. Handing an event off must never block ingestion.
type eventSink interface {
	Enqueue(event domain.GeofenceEvent)
}

// IngestionService is the entry point for location pings: it validates
// each ping against the current settings snapshot, resolves the tracker,
// and drives the visit state machine under a per-tracker lock.
type IngestionService struct {
	trackers  database.TrackerRepository
	snapshots *SnapshotService
	visits    *VisitService
	presence  cache.PresenceCache
	sink      eventSink
	logger    *zap.Logger

	locks          keyedMutex
	persistTimeout time.Duration
	now            func() time.Time
}

func NewIngestionService(
	trackers database.TrackerRepository,
	snapshots *SnapshotService,
	visits *VisitService,
	presence cache.PresenceCache,
	sink eventSink,
	logger *zap.Logger,
) *IngestionService {
	return &IngestionService{
		trackers:       trackers,
		snapshots:      snapshots,
		visits:         visits,
		presence:       presence,
		sink:           sink,
		logger:         logger,
		persistTimeout: defaultPersistTimeout,
		now:            time.Now,
	}
}

// Submit processes one ping. Rejections come back inside the result;
// a non-nil error means a transient infrastructure failure the adapter
// may retry. Notification delivery is decoupled: a processed result only
// guarantees the transition is durable, not that its alert went out.
func (s *IngestionService) Submit(ctx context.Context, ping *domain.Ping) (*domain.Result, error) {
	snap := s.snapshots.Current()

	if reason, ok := s.validate(ctx, ping, snap.Settings); !ok {
		s.logger.Info("ping rejected",
			zap.String("tracker_id", ping.TrackerID),
			zap.String("reason", string(reason)),
		)
		return domain.Rejected(reason), nil
	}

	m := Match(ping.Lat, ping.Lng, snap.Zones, snap.Settings.DefaultRadiusM)

	unlock := s.locks.Lock(ping.TrackerID)
	defer unlock()

	pctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	events, err := s.visits.Apply(pctx, ping, m, snap)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("ping processing timed out", zap.String("tracker_id", ping.TrackerID))
			return domain.Rejected(domain.RejectProcessingTimeout), nil
		}
		return nil, fmt.Errorf("process ping: %w", err)
	}

	s.cachePresence(ctx, ping, m)

	for _, e := range events {
		s.sink.Enqueue(e)
	}
	return domain.Accepted(events), nil
}

// validate runs the rejection chain in its fixed order; the first failing
// check wins.
func (s *IngestionService) validate(ctx context.Context, ping *domain.Ping, set domain.Settings) (domain.RejectionReason, bool) {
	if ping.TrackerID == "" {
		return domain.RejectMissingIdentity, false
	}
	if !validCoordinates(ping.Lat, ping.Lng) {
		return domain.RejectInvalidCoordinates, false
	}
	if ping.ReportedAt.IsZero() {
		return domain.RejectMissingTimestamp, false
	}

	now := s.now()
	if ping.ReportedAt.After(now.Add(set.FutureTolerance)) {
		return domain.RejectFutureTimestamp, false
	}
	if ping.ReportedAt.Before(now.Add(-set.MaxPingAge)) {
		return domain.RejectStaleTimestamp, false
	}

	tracker, err := s.trackers.Get(ctx, ping.TrackerID)
	if err != nil || !tracker.Active {
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			s.logger.Warn("tracker lookup failed", zap.String("tracker_id", ping.TrackerID), zap.Error(err))
		}
		return domain.RejectUnknownIdentity, false
	}

	if !set.SystemActive {
		return domain.RejectSystemPaused, false
	}
	if !set.WithinWorkHours(now) {
		return domain.RejectOutsideWorkHours, false
	}
	if set.MaxAccuracyM > 0 && ping.AccuracyM > set.MaxAccuracyM {
		return domain.RejectLowAccuracy, false
	}
	return "", true
}

// cachePresence is best-effort; a cache failure never fails the ping.
func (s *IngestionService) cachePresence(ctx context.Context, ping *domain.Ping, m domain.Membership) {
	p := &domain.Presence{
		TrackerID: ping.TrackerID,
		Lat:       ping.Lat,
		Lng:       ping.Lng,
		AccuracyM: ping.AccuracyM,
		Battery:   ping.Battery,
		ZoneCode:  m.ZoneCode,
		SeenAt:    ping.ReportedAt,
	}
	if err := s.presence.Set(ctx, p); err != nil {
		s.logger.Warn("presence cache update failed", zap.String("tracker_id", ping.TrackerID), zap.Error(err))
	}
}

// validCoordinates rejects out-of-range values and the (0,0) null island
// fix that broken devices report when they have no position.
func validCoordinates(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
