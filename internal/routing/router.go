// Package routing assigns a report's location to the administrative area that
// contains it.
package routing

import (
	"context"
	"sort"
	"time"

	"github.com/bwise1/barrier_reports/internal/geo"
	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/pkg/errors"
)

// Matcher finds the active area containing a point. Backends with a spatial
// index answer this with their native predicate.
type Matcher interface {
	ContainingArea(ctx context.Context, p model.Coordinates) (model.Area, bool, error)
}

// Router stamps the routing assignment for the area its Matcher picks. When
// several areas contain the point the lexicographically smallest area id
// wins, so the outcome is stable for identical input.
type Router struct {
	areas Matcher
	now   func() time.Time
}

func New(areas Matcher) *Router {
	return &Router{areas: areas, now: time.Now}
}

// WithClock replaces the match timestamp source.
func (r *Router) WithClock(now func() time.Time) *Router {
	r.now = now
	return r
}

// Route returns the routing assignment for p, or nil when no active area
// contains it.
func (r *Router) Route(ctx context.Context, p model.Coordinates) (*model.Routing, error) {
	match, ok, err := r.areas.ContainingArea(ctx, p)
	if err != nil {
		return nil, errors.Wrap(err, "routing: containing area")
	}
	if !ok {
		logger.Log.WithField("point", p.String()).Debug("routing: no containing area")
		return nil, nil
	}

	return &model.Routing{
		AreaID:     match.ID,
		MatchBasis: model.MatchGeoWithin,
		MatchedAt:  r.now().UTC(),
	}, nil
}

// Match picks the containing active area with the smallest id.
func Match(areas []model.Area, p model.Coordinates) (model.Area, bool) {
	candidates := make([]model.Area, 0, 1)
	for _, a := range areas {
		if !a.Active {
			continue
		}
		ring, err := geo.NewRing(a.Boundary)
		if err != nil {
			logger.Log.WithError(err).WithField("area_id", a.ID).Warn("routing: skipping malformed area")
			continue
		}
		if ring.Contains(p) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return model.Area{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates[0], true
}
