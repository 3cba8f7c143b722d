package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

var _ database.SettingsRepository = (*SettingsRepo)(nil)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Load reads the single operational settings row. A missing row falls
// back to defaults so a fresh database still processes pings.
func (r *SettingsRepo) Load(ctx context.Context) (domain.Settings, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT system_active, work_hours_start, work_hours_end, timezone,
		        default_radius_m, min_visit_minutes, max_accuracy_m,
		        future_tolerance_min, max_ping_age_days, visit_stale_after_hours
		   FROM settings WHERE id = 1`,
	)

	var (
		s                  = domain.DefaultSettings()
		minVisitMinutes    int
		futureToleranceMin int
		maxPingAgeDays     int
		staleAfterHours    int
	)
	err := row.Scan(
		&s.SystemActive, &s.WorkHoursStart, &s.WorkHoursEnd, &s.Timezone,
		&s.DefaultRadiusM, &minVisitMinutes, &s.MaxAccuracyM,
		&futureToleranceMin, &maxPingAgeDays, &staleAfterHours,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, err
	}

	s.MinVisitDuration = time.Duration(minVisitMinutes) * time.Minute
	s.FutureTolerance = time.Duration(futureToleranceMin) * time.Minute
	s.MaxPingAge = time.Duration(maxPingAgeDays) * 24 * time.Hour
	s.VisitStaleAfter = time.Duration(staleAfterHours) * time.Hour
	return s, nil
}
