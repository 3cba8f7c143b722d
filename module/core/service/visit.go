package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

// VisitService turns a stream of membership computations into discrete
// enter/exit transitions, holding the invariant of at most one open visit
// per (tracker, zone). Callers must serialize Apply per tracker.
type VisitService struct {
	visits database.VisitRepository
	logger *zap.Logger
}

func NewVisitService(visits database.VisitRepository, logger *zap.Logger) *VisitService {
	return &VisitService{visits: visits, logger: logger}
}

// Apply folds one accepted ping into the visit state for its tracker and
// returns the resulting events, exits before enters. A ping that matches
// the zone of an already-open visit only refreshes the last-seen
// watermark. A ping older than the watermark is ignored so out-of-order
// delivery can never close a visit before it opened.
func (s *VisitService) Apply(ctx context.Context, ping *domain.Ping, m domain.Membership, snap Snapshot) ([]domain.GeofenceEvent, error) {
	open, err := s.visits.OpenVisits(ctx, ping.TrackerID)
	if err != nil {
		return nil, fmt.Errorf("load open visits: %w", err)
	}

	open, err = s.healDuplicates(ctx, open)
	if err != nil {
		return nil, err
	}

	var events []domain.GeofenceEvent
	stillInside := false

	for i := range open {
		v := open[i]

		if m.Inside() && v.ZoneCode == m.ZoneCode {
			if ping.ReportedAt.Before(v.LastSeenAt) {
				stillInside = true
				continue
			}
			if err := s.visits.Touch(ctx, v.ID, ping.ReportedAt); err != nil {
				return nil, fmt.Errorf("refresh watermark: %w", err)
			}
			stillInside = true
			continue
		}

		if ping.ReportedAt.Before(v.LastSeenAt) {
			continue
		}

		event, err := s.closeVisit(ctx, &v, ping, domain.CloseByPing, snap)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	if m.Inside() && !stillInside {
		event, err := s.openVisit(ctx, ping, m)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}

	return events, nil
}

// healDuplicates enforces the one-open-visit-per-(tracker, zone)
// invariant. Finding more than one is data corruption from outside this
// path; the older visits are closed and the anomaly logged, and ingestion
// carries on.
func (s *VisitService) healDuplicates(ctx context.Context, open []domain.Visit) ([]domain.Visit, error) {
	newest := make(map[string]int, len(open))
	for i, v := range open {
		if j, ok := newest[v.ZoneCode]; !ok || v.EnteredAt.After(open[j].EnteredAt) {
			newest[v.ZoneCode] = i
		}
	}
	if len(newest) == len(open) {
		return open, nil
	}

	kept := make([]domain.Visit, 0, len(newest))
	for i, v := range open {
		if newest[v.ZoneCode] == i {
			kept = append(kept, v)
			continue
		}

		s.logger.Warn("duplicate open visit, closing older one",
			zap.String("tracker_id", v.TrackerID),
			zap.String("zone_code", v.ZoneCode),
			zap.Int64("visit_id", v.ID),
		)
		if _, err := s.ForceClose(ctx, &v, v.LastSeenAt, domain.CloseHealAnomaly); err != nil {
			return nil, fmt.Errorf("heal duplicate visit %d: %w", v.ID, err)
		}
	}
	return kept, nil
}

func (s *VisitService) openVisit(ctx context.Context, ping *domain.Ping, m domain.Membership) (*domain.GeofenceEvent, error) {
	visit := &domain.Visit{
		TrackerID:  ping.TrackerID,
		ZoneCode:   m.ZoneCode,
		EnteredAt:  ping.ReportedAt,
		EntryLat:   ping.Lat,
		EntryLng:   ping.Lng,
		LastSeenAt: ping.ReportedAt,
	}
	event := &domain.GeofenceEvent{
		ID:         uuid.NewString(),
		Type:       domain.EventEnter,
		TrackerID:  ping.TrackerID,
		ZoneCode:   m.ZoneCode,
		Lat:        ping.Lat,
		Lng:        ping.Lng,
		DistanceM:  m.DistanceM,
		AccuracyM:  ping.AccuracyM,
		Battery:    ping.Battery,
		OccurredAt: ping.ReportedAt,
		Delivery:   domain.DeliveryPending,
	}

	if err := s.visits.OpenWithEvent(ctx, visit, event); err != nil {
		return nil, fmt.Errorf("open visit: %w", err)
	}
	return event, nil
}

func (s *VisitService) closeVisit(ctx context.Context, v *domain.Visit, ping *domain.Ping, reason domain.CloseReason, snap Snapshot) (*domain.GeofenceEvent, error) {
	exitAt := ping.ReportedAt
	if exitAt.Before(v.EnteredAt) {
		exitAt = v.EnteredAt
	}
	duration := exitAt.Sub(v.EnteredAt)
	durationSec := int64(duration / time.Second)

	v.ExitedAt = &exitAt
	v.ExitLat = &ping.Lat
	v.ExitLng = &ping.Lng
	v.DurationSec = &durationSec
	v.CloseReason = reason

	distance := distanceToZone(ping.Lat, ping.Lng, v.ZoneCode, snap.Zones)
	event := &domain.GeofenceEvent{
		ID:          uuid.NewString(),
		Type:        domain.EventExit,
		TrackerID:   v.TrackerID,
		ZoneCode:    v.ZoneCode,
		Lat:         ping.Lat,
		Lng:         ping.Lng,
		DistanceM:   distance,
		AccuracyM:   ping.AccuracyM,
		Battery:     ping.Battery,
		OccurredAt:  exitAt,
		Short:       duration < snap.Settings.MinVisitDuration,
		CloseReason: reason,
		Delivery:    domain.DeliveryPending,
	}

	if err := s.visits.CloseWithEvent(ctx, v, event); err != nil {
		return nil, fmt.Errorf("close visit: %w", err)
	}
	return event, nil
}

// ForceClose closes an open visit without a triggering ping: stale visits
// whose device went silent, visits of deactivated trackers, and self-heal
// closes. The exit uses the entry coordinates and the last-seen watermark
// so the recorded duration only covers observed presence.
func (s *VisitService) ForceClose(ctx context.Context, v *domain.Visit, at time.Time, reason domain.CloseReason) (*domain.GeofenceEvent, error) {
	exitAt := at
	if exitAt.Before(v.EnteredAt) {
		exitAt = v.EnteredAt
	}
	durationSec := int64(exitAt.Sub(v.EnteredAt) / time.Second)

	exitLat, exitLng := v.EntryLat, v.EntryLng
	v.ExitedAt = &exitAt
	v.ExitLat = &exitLat
	v.ExitLng = &exitLng
	v.DurationSec = &durationSec
	v.CloseReason = reason

	event := &domain.GeofenceEvent{
		ID:          uuid.NewString(),
		Type:        domain.EventExit,
		TrackerID:   v.TrackerID,
		ZoneCode:    v.ZoneCode,
		Lat:         exitLat,
		Lng:         exitLng,
		DistanceM:   0,
		OccurredAt:  exitAt,
		CloseReason: reason,
		Delivery:    domain.DeliveryPending,
	}

	if err := s.visits.CloseWithEvent(ctx, v, event); err != nil {
		return nil, fmt.Errorf("force close visit: %w", err)
	}
	return event, nil
}
