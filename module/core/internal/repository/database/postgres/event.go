package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

var _ database.EventRepository = (*EventRepo)(nil)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

const eventColumns = `id, event_type, tracker_id, zone_code, latitude, longitude,
	distance_m, accuracy_m, battery_pct, occurred_at, short_visit,
	COALESCE(close_reason, ''), delivery_status, COALESCE(delivery_error, '')`

func scanEvent(row interface{ Scan(...any) error }) (*domain.GeofenceEvent, error) {
	var e domain.GeofenceEvent
	var battery sql.NullFloat64
	var eventType, closeReason, delivery string

	err := row.Scan(
		&e.ID, &eventType, &e.TrackerID, &e.ZoneCode, &e.Lat, &e.Lng,
		&e.DistanceM, &e.AccuracyM, &battery, &e.OccurredAt, &e.Short,
		&closeReason, &delivery, &e.DeliveryError,
	)
	if err != nil {
		return nil, err
	}
	if battery.Valid {
		e.Battery = &battery.Float64
	}
	e.Type = domain.EventType(eventType)
	e.CloseReason = domain.CloseReason(closeReason)
	e.Delivery = domain.DeliveryStatus(delivery)
	return &e, nil
}

func (r *EventRepo) ListRecent(ctx context.Context, since time.Time, limit int) ([]domain.GeofenceEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM geofence_events
		  WHERE occurred_at >= $1 ORDER BY occurred_at DESC LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectEvents(rows)
}

// Undelivered returns events still pending or failed inside the retry
// lookback window, oldest first so long-stuck events go out first.
func (r *EventRepo) Undelivered(ctx context.Context, since time.Time, limit int) ([]domain.GeofenceEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM geofence_events
		  WHERE delivery_status IN ('pending', 'failed') AND occurred_at >= $1
		  ORDER BY occurred_at ASC LIMIT $2`,
		since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return collectEvents(rows)
}

func (r *EventRepo) DeliveryStatus(ctx context.Context, eventID string) (domain.DeliveryStatus, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT delivery_status FROM geofence_events WHERE id = $1`, eventID,
	)
	var status string
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", database.ErrNotFound
		}
		return "", err
	}
	return domain.DeliveryStatus(status), nil
}

// MarkSent is a no-op for events already sent, keeping delivery
// idempotent under concurrent sweeps.
func (r *EventRepo) MarkSent(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE geofence_events SET delivery_status = 'sent', delivery_error = NULL
		  WHERE id = $1 AND delivery_status <> 'sent'`,
		eventID,
	)
	return err
}

func (r *EventRepo) MarkFailed(ctx context.Context, eventID, lastError string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE geofence_events SET delivery_status = 'failed', delivery_error = $1
		  WHERE id = $2 AND delivery_status <> 'sent'`,
		lastError, eventID,
	)
	return err
}

func collectEvents(rows *sql.Rows) ([]domain.GeofenceEvent, error) {
	var results []domain.GeofenceEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *e)
	}
	return results, rows.Err()
}
