package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

var _ database.VisitRepository = (*VisitRepo)(nil)

type VisitRepo struct {
	db *sql.DB
}

func NewVisitRepo(db *sql.DB) *VisitRepo {
	return &VisitRepo{db: db}
}

const visitColumns = `id, tracker_id, zone_code, entered_at, entry_lat, entry_lng,
	last_seen_at, exited_at, exit_lat, exit_lng, duration_sec, COALESCE(close_reason, '')`

func scanVisit(row interface{ Scan(...any) error }) (*domain.Visit, error) {
	var v domain.Visit
	var exitedAt sql.NullTime
	var exitLat, exitLng sql.NullFloat64
	var durationSec sql.NullInt64
	var closeReason string

	err := row.Scan(
		&v.ID, &v.TrackerID, &v.ZoneCode, &v.EnteredAt, &v.EntryLat, &v.EntryLng,
		&v.LastSeenAt, &exitedAt, &exitLat, &exitLng, &durationSec, &closeReason,
	)
	if err != nil {
		return nil, err
	}
	if exitedAt.Valid {
		v.ExitedAt = &exitedAt.Time
	}
	if exitLat.Valid {
		v.ExitLat = &exitLat.Float64
	}
	if exitLng.Valid {
		v.ExitLng = &exitLng.Float64
	}
	if durationSec.Valid {
		v.DurationSec = &durationSec.Int64
	}
	v.CloseReason = domain.CloseReason(closeReason)
	return &v, nil
}

func (r *VisitRepo) OpenVisits(ctx context.Context, trackerID string) ([]domain.Visit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+visitColumns+` FROM visits
		  WHERE tracker_id = $1 AND exited_at IS NULL ORDER BY entered_at ASC`,
		trackerID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectVisits(rows)
}

// OpenWithEvent inserts the new visit and its enter event in one
// transaction and fills in the assigned visit ID.
func (r *VisitRepo) OpenWithEvent(ctx context.Context, visit *domain.Visit, event *domain.GeofenceEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO visits (tracker_id, zone_code, entered_at, entry_lat, entry_lng, last_seen_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		visit.TrackerID, visit.ZoneCode, visit.EnteredAt, visit.EntryLat, visit.EntryLng, visit.LastSeenAt,
	).Scan(&visit.ID)
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}

	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

// CloseWithEvent stamps the exit fields on the visit row and inserts the
// exit event in one transaction. The WHERE guard on exited_at keeps a
// concurrent close from double-writing the same visit.
func (r *VisitRepo) CloseWithEvent(ctx context.Context, visit *domain.Visit, event *domain.GeofenceEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE visits SET exited_at = $1, exit_lat = $2, exit_lng = $3,
		        duration_sec = $4, close_reason = $5
		  WHERE id = $6 AND exited_at IS NULL`,
		visit.ExitedAt, visit.ExitLat, visit.ExitLng, visit.DurationSec, string(visit.CloseReason), visit.ID,
	)
	if err != nil {
		return fmt.Errorf("close visit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("close visit %d: %w", visit.ID, database.ErrNotFound)
	}

	if err := insertEvent(ctx, tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *VisitRepo) Touch(ctx context.Context, visitID int64, seenAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE visits SET last_seen_at = $1 WHERE id = $2 AND exited_at IS NULL`,
		seenAt, visitID,
	)
	return err
}

func (r *VisitRepo) ListByTracker(ctx context.Context, trackerID string, limit int) ([]domain.Visit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+visitColumns+` FROM visits
		  WHERE tracker_id = $1 ORDER BY entered_at DESC LIMIT $2`,
		trackerID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectVisits(rows)
}

func (r *VisitRepo) StaleOpen(ctx context.Context, cutoff time.Time) ([]domain.Visit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+visitColumns+` FROM visits
		  WHERE exited_at IS NULL AND last_seen_at < $1 ORDER BY last_seen_at ASC`,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectVisits(rows)
}

func (r *VisitRepo) OpenForInactiveTrackers(ctx context.Context) ([]domain.Visit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+"v.id, v.tracker_id, v.zone_code, v.entered_at, v.entry_lat, v.entry_lng, v.last_seen_at, v.exited_at, v.exit_lat, v.exit_lng, v.duration_sec, COALESCE(v.close_reason, '')"+`
		   FROM visits v JOIN trackers t ON t.tracker_id = v.tracker_id
		  WHERE v.exited_at IS NULL AND NOT t.active`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectVisits(rows)
}

func collectVisits(rows *sql.Rows) ([]domain.Visit, error) {
	var results []domain.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *v)
	}
	return results, rows.Err()
}

func insertEvent(ctx context.Context, tx *sql.Tx, e *domain.GeofenceEvent) error {
	var battery sql.NullFloat64
	if e.Battery != nil {
		battery = sql.NullFloat64{Float64: *e.Battery, Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO geofence_events
		        (id, event_type, tracker_id, zone_code, latitude, longitude,
		         distance_m, accuracy_m, battery_pct, occurred_at, short_visit,
		         close_reason, delivery_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, string(e.Type), e.TrackerID, e.ZoneCode, e.Lat, e.Lng,
		e.DistanceM, e.AccuracyM, battery, e.OccurredAt, e.Short,
		string(e.CloseReason), string(e.Delivery),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
