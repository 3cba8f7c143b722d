package cache

import (
	"context"
	"errors"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
)

// ErrNotFound is returned when no live position is cached for a tracker.
var ErrNotFound = errors.New("presence not found")

// PresenceCache keeps the last accepted position per tracker for the
// live-status API. Entries expire on their own; the cache is best-effort
// and never on the durability path.
type PresenceCache interface {
	Set(ctx context.Context, p *domain.Presence) error
	Get(ctx context.Context, trackerID string) (*domain.Presence, error)
}
