package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

// VisitSweeper force-closes visits that can no longer end through a ping:
// open visits whose device went silent past the staleness window, and
// open visits of trackers that were deactivated by the user-management
// side.
type VisitSweeper struct {
	visits    database.VisitRepository
	visitSvc  *VisitService
	snapshots *SnapshotService
	sink      eventSink
	logger    *zap.Logger
	now       func() time.Time
}

func NewVisitSweeper(
	visits database.VisitRepository,
	visitSvc *VisitService,
	snapshots *SnapshotService,
	sink eventSink,
	logger *zap.Logger,
) *VisitSweeper {
	return &VisitSweeper{
		visits:    visits,
		visitSvc:  visitSvc,
		snapshots: snapshots,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep closes stale and orphaned visits and hands the exit events to the
// dispatcher. Each visit is handled independently; one failure does not
// stop the rest.
func (w *VisitSweeper) Sweep(ctx context.Context) error {
	snap := w.snapshots.Current()
	now := w.now()

	stale, err := w.visits.StaleOpen(ctx, now.Add(-snap.Settings.VisitStaleAfter))
	if err != nil {
		return fmt.Errorf("list stale visits: %w", err)
	}
	w.closeAll(ctx, stale, domain.CloseStale)

	orphaned, err := w.visits.OpenForInactiveTrackers(ctx)
	if err != nil {
		return fmt.Errorf("list orphaned visits: %w", err)
	}
	w.closeAll(ctx, orphaned, domain.CloseDeactivated)

	return nil
}

func (w *VisitSweeper) closeAll(ctx context.Context, visits []domain.Visit, reason domain.CloseReason) {
	for i := range visits {
		v := visits[i]
		event, err := w.visitSvc.ForceClose(ctx, &v, v.LastSeenAt, reason)
		if err != nil {
			w.logger.Warn("force close failed",
				zap.Int64("visit_id", v.ID),
				zap.String("reason", string(reason)),
				zap.Error(err),
			)
			continue
		}
		w.logger.Info("visit force-closed",
			zap.Int64("visit_id", v.ID),
			zap.String("tracker_id", v.TrackerID),
			zap.String("zone_code", v.ZoneCode),
			zap.String("reason", string(reason)),
		)
		w.sink.Enqueue(*event)
	}
}

// Run sweeps on a fixed interval until the context is canceled.
func (w *VisitSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Sweep(ctx); err != nil {
				w.logger.Warn("visit sweep failed", zap.Error(err))
			}
		}
	}
}
