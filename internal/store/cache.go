package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/util/cache"
)

const areaListKey = "areas:all:v2"

// AreaCache serves the area listing from Redis, loading it from the backend
// on a miss. Boundaries are stored as JSON numbers, which round-trip float64
// exactly. Cache failures fall through to the backend.
type AreaCache struct {
	source interface {
		ListAreas(ctx context.Context) ([]model.Area, error)
	}
	client cache.Client
	ttl    time.Duration
}

func NewAreaCache(backend Backend, client cache.Client, ttl time.Duration) *AreaCache {
	return &AreaCache{source: backend, client: client, ttl: ttl}
}

func (c *AreaCache) ListAreas(ctx context.Context) ([]model.Area, error) {
	raw, err := c.client.Get(ctx, areaListKey)
	switch {
	case err == nil:
		var areas []model.Area
		decodeErr := json.Unmarshal([]byte(raw), &areas)
		if decodeErr == nil {
			return areas, nil
		}
		logger.Log.WithError(decodeErr).Warn("area cache: dropping undecodable entry")
	case !errors.Is(err, cache.ErrMiss):
		logger.Log.WithError(err).Warn("area cache: get failed, reading backend")
	}

	areas, err := c.source.ListAreas(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(areas)
	if err != nil {
		logger.Log.WithError(err).Warn("area cache: encode failed")
		return areas, nil
	}
	if err := c.client.Set(ctx, areaListKey, string(encoded), c.ttl); err != nil {
		logger.Log.WithError(err).Warn("area cache: set failed")
	}
	return areas, nil
}

func (c *AreaCache) Invalidate(ctx context.Context) {
	if err := c.client.Delete(ctx, areaListKey); err != nil {
		logger.Log.WithError(err).Warn("area cache: invalidate failed")
	}
}
