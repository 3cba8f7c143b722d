package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/database"
)

// Snapshot is one immutable view of the operational settings and the
// active zone list. Processing calls receive a snapshot by value; nothing
// in the request path reads mutable configuration directly.
type Snapshot struct {
	Settings domain.Settings
	Zones    []domain.Zone
}

// SnapshotService periodically reloads settings and zones from the
// administrative store and swaps them in atomically.
type SnapshotService struct {
	settings database.SettingsRepository
	zones    database.ZoneRepository
	logger   *zap.Logger

	mu      sync.RWMutex
	current Snapshot
}

func NewSnapshotService(settings database.SettingsRepository, zones database.ZoneRepository, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{
		settings: settings,
		zones:    zones,
		logger:   logger,
		current:  Snapshot{Settings: domain.DefaultSettings()},
	}
}

func (s *SnapshotService) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *SnapshotService) Refresh(ctx context.Context) error {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		return err
	}
	zones, err := s.zones.ListActive(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = Snapshot{Settings: settings, Zones: zones}
	s.mu.Unlock()
	return nil
}

// Run refreshes on a fixed interval until the context is canceled. A
// failed refresh keeps the previous snapshot.
func (s *SnapshotService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Warn("snapshot refresh failed", zap.Error(err))
			}
		}
	}
}
