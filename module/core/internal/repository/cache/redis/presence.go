package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/domain"
	"github.com/RDG-CONSULTORES/pollo-loco-tracking-gps-sub000/module/core/internal/repository/cache"
)

var _ cache.PresenceCache = (*PresenceCache)(nil)

const keyPrefix = "presence:"

type PresenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresenceCache(client *redis.Client, ttl time.Duration) *PresenceCache {
	return &PresenceCache{client: client, ttl: ttl}
}

func (c *PresenceCache) Set(ctx context.Context, p *domain.Presence) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	return c.client.Set(ctx, keyPrefix+p.TrackerID, body, c.ttl).Err()
}

func (c *PresenceCache) Get(ctx context.Context, trackerID string) (*domain.Presence, error) {
	body, err := c.client.Get(ctx, keyPrefix+trackerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}

	var p domain.Presence
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("unmarshal presence: %w", err)
	}
	return &p, nil
}
