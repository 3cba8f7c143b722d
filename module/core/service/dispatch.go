package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/publisher"
)

const (
	defaultSendTimeout   = 15 * time.Second
	defaultRetryLookback = time.Hour
	defaultRetryBatch    = 200
	dispatchQueueSize    = 256
)

// DispatcherService renders and delivers notifications for emitted
// events. Delivery state lives on the event row (the outbox), so a fresh
// process resumes where the previous one stopped: the direct path is just
// an optimization over the periodic retry sweep.
type DispatcherService struct {
	events    database.EventRepository
	trackers  database.TrackerRepository
	snapshots *SnapshotService
	pub       publisher.AlertPublisher
	logger    *zap.Logger

	fallbackTarget string
	sendTimeout    time.Duration
	lookback       time.Duration

	queue    chan domain.GeofenceEvent
	sweeping atomic.Bool
	now      func() time.Time
}

func NewDispatcherService(
	events database.EventRepository,
	trackers database.TrackerRepository,
	snapshots *SnapshotService,
	pub publisher.AlertPublisher,
	fallbackTarget string,
	logger *zap.Logger,
) *DispatcherService {
	return &DispatcherService{
		events:         events,
		trackers:       trackers,
		snapshots:      snapshots,
		pub:            pub,
		logger:         logger,
		fallbackTarget: fallbackTarget,
		sendTimeout:    defaultSendTimeout,
		lookback:       defaultRetryLookback,
		queue:          make(chan domain.GeofenceEvent, dispatchQueueSize),
		now:            time.Now,
	}
}

// Enqueue hands an event to the delivery worker without blocking. When
// the queue is full the event is simply left to the retry sweep; its
// outbox row already guarantees it will go out.
func (d *DispatcherService) Enqueue(event domain.GeofenceEvent) {
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("dispatch queue full, deferring to retry sweep", zap.String("event_id", event.ID))
	}
}

// Run consumes the queue until the context is canceled.
func (d *DispatcherService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.queue:
			if err := d.Dispatch(ctx, &event); err != nil {
				d.logger.Warn("dispatch failed, will retry",
					zap.String("event_id", event.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// Dispatch delivers one event's notification. The delivery status is
// checked first so duplicate attempts are no-ops; only the outcome of the
// actual send mutates the event row. Self-heal closes are recorded for
// audit but never notified.
func (d *DispatcherService) Dispatch(ctx context.Context, event *domain.GeofenceEvent) error {
	if event.CloseReason == domain.CloseHealAnomaly {
		return nil
	}

	status, err := d.events.DeliveryStatus(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("delivery status: %w", err)
	}
	if status == domain.DeliverySent {
		return nil
	}

	n := d.buildNotification(ctx, event)

	sctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.pub.Publish(sctx, n); err != nil {
		if markErr := d.events.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			d.logger.Error("mark failed", zap.String("event_id", event.ID), zap.Error(markErr))
		}
		return fmt.Errorf("publish alert: %w", err)
	}

	if err := d.events.MarkSent(ctx, event.ID); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// RetryPending re-attempts every undelivered event inside the lookback
// window. Only one sweep runs at a time; events are processed
// independently so one stuck delivery cannot hold up the batch. Returns
// how many notifications went out.
func (d *DispatcherService) RetryPending(ctx context.Context) (int, error) {
	if !d.sweeping.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer d.sweeping.Store(false)

	since := d.now().Add(-d.lookback)
	pending, err := d.events.Undelivered(ctx, since, defaultRetryBatch)
	if err != nil {
		return 0, fmt.Errorf("list undelivered: %w", err)
	}

	sent := 0
	for i := range pending {
		if err := d.Dispatch(ctx, &pending[i]); err != nil {
			d.logger.Warn("retry failed",
				zap.String("event_id", pending[i].ID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

// RunSweep runs RetryPending on a fixed interval until the context is
// canceled.
func (d *DispatcherService) RunSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sent, err := d.RetryPending(ctx); err != nil {
				d.logger.Warn("retry sweep failed", zap.Error(err))
			} else if sent > 0 {
				d.logger.Info("retry sweep delivered notifications", zap.Int("sent", sent))
			}
		}
	}
}

func (d *DispatcherService) buildNotification(ctx context.Context, event *domain.GeofenceEvent) *domain.Notification {
	snap := d.snapshots.Current()

	trackerName := event.TrackerID
	target := d.fallbackTarget
	if tracker, err := d.trackers.Get(ctx, event.TrackerID); err == nil {
		trackerName = tracker.Name
		if tracker.NotifyTarget != "" {
			target = tracker.NotifyTarget
		}
	}

	zoneName := event.ZoneCode
	group := ""
	if zone, ok := findZone(snap.Zones, event.ZoneCode); ok {
		zoneName = zone.Name
		group = zone.Group
	}

	return &domain.Notification{
		EventID: event.ID,
		Target:  target,
		Group:   group,
		Text:    renderAlert(event, trackerName, zoneName, snap.Settings.Timezone),
	}
}

// renderAlert formats the human-readable alert line. Pure formatting,
// no side effects.
func renderAlert(event *domain.GeofenceEvent, trackerName, zoneName, timezone string) string {
	verb := "arrived at"
	if event.Type == domain.EventExit {
		verb = "left"
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	when := event.OccurredAt.In(loc).Format("2006-01-02 15:04")

	text := fmt.Sprintf("%s %s %s at %s", trackerName, verb, zoneName, when)
	if event.DistanceM >= 0 {
		text += fmt.Sprintf(" (%.0f m from center", event.DistanceM)
		if event.AccuracyM > 0 {
			text += fmt.Sprintf(", accuracy %.0f m", event.AccuracyM)
		}
		if event.Battery != nil {
			text += fmt.Sprintf(", battery %.0f%%", *event.Battery)
		}
		text += ")"
	}
	switch {
	case event.CloseReason == domain.CloseStale:
		text += " [auto-closed: no signal]"
	case event.CloseReason == domain.CloseDeactivated:
		text += " [auto-closed: tracker deactivated]"
	case event.Short:
		text += " [short visit]"
	}
	return text
}
