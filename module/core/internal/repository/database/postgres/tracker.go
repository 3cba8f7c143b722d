package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

var _ database.TrackerRepository = (*TrackerRepo)(nil)

type TrackerRepo struct {
	db *sql.DB
}

func NewTrackerRepo(db *sql.DB) *TrackerRepo {
	return &TrackerRepo{db: db}
}

func (r *TrackerRepo) Get(ctx context.Context, trackerID string) (*domain.Tracker, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT tracker_id, name, active, COALESCE(notify_target, '') FROM trackers WHERE tracker_id = $1`,
		trackerID,
	)

	var t domain.Tracker
	if err := row.Scan(&t.ID, &t.Name, &t.Active, &t.NotifyTarget); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TrackerRepo) List(ctx context.Context) ([]domain.Tracker, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tracker_id, name, active, COALESCE(notify_target, '') FROM trackers ORDER BY tracker_id`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Tracker
	for rows.Next() {
		var t domain.Tracker
		if err := rows.Scan(&t.ID, &t.Name, &t.Active, &t.NotifyTarget); err != nil {
			return nil, err
		}
		results = append(results, t)
	}
	return results, rows.Err()
}
