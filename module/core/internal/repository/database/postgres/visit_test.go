package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

func enterEvent(ts time.Time) *domain.GeofenceEvent {
	return &domain.GeofenceEvent{
		ID:         "6f1c0c9e-59a9-4b8e-9d56-0a43a2a1a001",
		Type:       domain.EventEnter,
		TrackerID:  "T1",
		ZoneCode:   "Z1",
		Lat:        25.68687,
		Lng:        -100.3161,
		DistanceM:  30,
		AccuracyM:  12,
		OccurredAt: ts,
		Delivery:   domain.DeliveryPending,
	}
}

func TestOpenWithEvent_CommitsBoth(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	ts := time.Unix(1715000000, 0)
	visit := &domain.Visit{TrackerID: "T1", ZoneCode: "Z1", EnteredAt: ts, EntryLat: 25.68687, EntryLng: -100.3161, LastSeenAt: ts}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO visits`).
		WithArgs("T1", "Z1", ts, 25.68687, -100.3161, ts).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec(`INSERT INTO geofence_events`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewVisitRepo(db)
	if err := repo.OpenWithEvent(context.Background(), visit, enterEvent(ts)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if visit.ID != 42 {
		t.Errorf("expected assigned id 42, got %d", visit.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenWithEvent_RollsBackOnEventFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	ts := time.Unix(1715000000, 0)
	visit := &domain.Visit{TrackerID: "T1", ZoneCode: "Z1", EnteredAt: ts, EntryLat: 25.68687, EntryLng: -100.3161, LastSeenAt: ts}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO visits`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectExec(`INSERT INTO geofence_events`).
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	repo := NewVisitRepo(db)
	if err := repo.OpenWithEvent(context.Background(), visit, enterEvent(ts)); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCloseWithEvent_AlreadyClosedIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	ts := time.Unix(1715000600, 0)
	lat, lng := 25.6911, -100.3161
	durationSec := int64(600)
	visit := &domain.Visit{
		ID: 42, TrackerID: "T1", ZoneCode: "Z1",
		ExitedAt: &ts, ExitLat: &lat, ExitLng: &lng,
		DurationSec: &durationSec, CloseReason: domain.CloseByPing,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE visits SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewVisitRepo(db)
	err = repo.CloseWithEvent(context.Background(), visit, enterEvent(ts))
	if !errors.Is(err, database.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for already-closed visit, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestOpenVisits_ScansNullableFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()

	ts := time.Unix(1715000000, 0)
	rows := sqlmock.NewRows([]string{
		"id", "tracker_id", "zone_code", "entered_at", "entry_lat", "entry_lng",
		"last_seen_at", "exited_at", "exit_lat", "exit_lng", "duration_sec", "close_reason",
	}).AddRow(int64(1), "T1", "Z1", ts, 25.68687, -100.3161, ts, nil, nil, nil, nil, "")

	mock.ExpectQuery(`SELECT (.+) FROM visits`).
		WithArgs("T1").
		WillReturnRows(rows)

	repo := NewVisitRepo(db)
	visits, err := repo.OpenVisits(context.Background(), "T1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(visits) != 1 {
		t.Fatalf("expected 1 visit, got %d", len(visits))
	}
	if !visits[0].Open() {
		t.Error("visit with null exited_at must be open")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
