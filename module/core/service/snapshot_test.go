package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
)

type failingSettingsRepo struct{}

func (failingSettingsRepo) Load(context.Context) (domain.Settings, error) {
	return domain.Settings{}, errors.New("db down")
}

func TestSnapshot_RefreshSwapsAtomically(t *testing.T) {
	settings := domain.DefaultSettings()
	settings.MaxAccuracyM = 42

	s := NewSnapshotService(&stubSettingsRepo{settings: settings}, &stubZoneRepo{zones: testZones}, zap.NewNop())

	// before the first refresh, defaults apply
	if got := s.Current().Settings.MaxAccuracyM; got != domain.DefaultSettings().MaxAccuracyM {
		t.Fatalf("expected default settings before refresh, got %f", got)
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := s.Current()
	if snap.Settings.MaxAccuracyM != 42 {
		t.Errorf("expected refreshed settings, got %f", snap.Settings.MaxAccuracyM)
	}
	if len(snap.Zones) != len(testZones) {
		t.Errorf("expected %d zones, got %d", len(testZones), len(snap.Zones))
	}
}

func TestSnapshot_FailedRefreshKeepsPrevious(t *testing.T) {
	s := NewSnapshotService(&stubSettingsRepo{settings: domain.DefaultSettings()}, &stubZoneRepo{zones: testZones}, zap.NewNop())
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.settings = failingSettingsRepo{}
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	if len(s.Current().Zones) != len(testZones) {
		t.Error("failed refresh must keep the previous snapshot")
	}
}
