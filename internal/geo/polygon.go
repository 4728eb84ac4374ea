// Package geo holds the planar point-in-polygon predicate used to route
// reports to administrative areas.
package geo

import (
	"errors"
	"math"

	"github.com/bwise1/barrier_reports/internal/model"
)

// epsilon is the tolerance, in degrees, for treating a point as lying on an edge.
const epsilon = 1e-12

var ErrDegenerateRing = errors.New("geo: ring needs at least 3 distinct vertices")

// Bounds is an axis-aligned bounding box in degrees.
type Bounds struct {
	MinLat, MinLng, MaxLat, MaxLng float64
}

func (b Bounds) Contains(p model.Coordinates) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Ring is a closed polygon boundary.
type Ring struct {
	points []model.Coordinates
	bounds Bounds
}

// NewRing closes the ring if needed and rejects rings with fewer than three
// distinct vertices.
func NewRing(points []model.Coordinates) (Ring, error) {
	closed := model.CloseRing(points)
	distinct := make(map[model.Coordinates]struct{}, len(closed))
	for _, p := range closed {
		if !p.Valid() {
			return Ring{}, errors.New("geo: vertex out of range")
		}
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return Ring{}, ErrDegenerateRing
	}

	b := Bounds{MinLat: math.Inf(1), MinLng: math.Inf(1), MaxLat: math.Inf(-1), MaxLng: math.Inf(-1)}
	for _, p := range closed {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}
	return Ring{points: closed, bounds: b}, nil
}

func (r Ring) Bounds() Bounds { return r.bounds }

// Points returns the closed vertex list.
func (r Ring) Points() []model.Coordinates { return r.points }

// Contains reports whether p is inside the ring or on its boundary. Interior
// points are decided with the even-odd crossing rule.
func (r Ring) Contains(p model.Coordinates) bool {
	if len(r.points) < 4 || !r.bounds.Contains(p) {
		return false
	}

	inside := false
	for i, j := 0, len(r.points)-1; i < len(r.points); j, i = i, i+1 {
		a, b := r.points[j], r.points[i]
		if onSegment(p, a, b) {
			return true
		}
		// x is longitude, y is latitude
		if (b.Lat > p.Lat) != (a.Lat > p.Lat) {
			x := (a.Lng-b.Lng)*(p.Lat-b.Lat)/(a.Lat-b.Lat) + b.Lng
			if p.Lng < x {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(p, a, b model.Coordinates) bool {
	cross := (b.Lng-a.Lng)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lng-a.Lng)
	if math.Abs(cross) > epsilon {
		return false
	}
	return p.Lng >= math.Min(a.Lng, b.Lng)-epsilon && p.Lng <= math.Max(a.Lng, b.Lng)+epsilon &&
		p.Lat >= math.Min(a.Lat, b.Lat)-epsilon && p.Lat <= math.Max(a.Lat, b.Lat)+epsilon
}

// Contains is a convenience wrapper for a one-off containment test.
func Contains(boundary []model.Coordinates, p model.Coordinates) bool {
	ring, err := NewRing(boundary)
	if err != nil {
		return false
	}
	return ring.Contains(p)
}
