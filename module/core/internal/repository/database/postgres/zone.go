package postgres

import (
	"context"
	"database/sql"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

var _ database.ZoneRepository = (*ZoneRepo)(nil)

type ZoneRepo struct {
	db *sql.DB
}

func NewZoneRepo(db *sql.DB) *ZoneRepo {
	return &ZoneRepo{db: db}
}

func (r *ZoneRepo) ListActive(ctx context.Context) ([]domain.Zone, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT code, name, latitude, longitude, radius_m, COALESCE(group_name, ''), active
		   FROM zones WHERE active ORDER BY code`,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []domain.Zone
	for rows.Next() {
		var z domain.Zone
		if err := rows.Scan(&z.Code, &z.Name, &z.Lat, &z.Lng, &z.RadiusM, &z.Group, &z.Active); err != nil {
			return nil, err
		}
		results = append(results, z)
	}
	return results, rows.Err()
}
