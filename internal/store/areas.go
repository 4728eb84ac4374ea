package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bwise1/barrier_reports/internal/geo"
	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/model"
)

// ListingCache serves the area listing and drops it after a write.
type ListingCache interface {
	ListAreas(ctx context.Context) ([]model.Area, error)
	Invalidate(ctx context.Context)
}

// AreaStore manages administrative areas. Routing never reads through the
// listing cache; it asks the backend's ContainingArea.
type AreaStore struct {
	backend Backend
	cache   ListingCache
}

func NewAreaStore(backend Backend, cache ListingCache) *AreaStore {
	return &AreaStore{backend: backend, cache: cache}
}

func (s *AreaStore) Create(ctx context.Context, req model.CreateAreaRequest) (model.Area, error) {
	ring, err := geo.NewRing(req.Boundary)
	if err != nil {
		return model.Area{}, fmt.Errorf("%w: %v", ErrInvalidArea, err)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	area, err := s.backend.InsertArea(ctx, model.Area{
		Name:      req.Name,
		Boundary:  ring.Points(),
		Active:    active,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		return model.Area{}, err
	}
	s.invalidate(ctx)
	area.Polyline = geo.EncodePolyline(area.Boundary)
	return area, nil
}

func (s *AreaStore) List(ctx context.Context) ([]model.Area, error) {
	var (
		areas []model.Area
		err   error
	)
	if s.cache != nil {
		areas, err = s.cache.ListAreas(ctx)
	} else {
		areas, err = s.backend.ListAreas(ctx)
	}
	if err != nil {
		return nil, err
	}
	if areas == nil {
		areas = []model.Area{}
	}
	for i := range areas {
		areas[i].Polyline = geo.EncodePolyline(areas[i].Boundary)
	}
	return areas, nil
}

// Delete removes an area. Reports already routed to it keep their assignment.
func (s *AreaStore) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteArea(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *AreaStore) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(ctx)
	logger.Log.Debug("area cache invalidated")
}
