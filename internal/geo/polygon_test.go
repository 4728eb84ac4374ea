package geo

import (
	"testing"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() []model.Coordinates {
	return []model.Coordinates{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
		{Lat: 10, Lng: 10},
		{Lat: 10, Lng: 0},
	}
}

func TestRingContains(t *testing.T) {
	ring, err := NewRing(square())
	require.NoError(t, err)

	testCases := []struct {
		name  string
		point model.Coordinates
		want  bool
	}{
		{"interior", model.Coordinates{Lat: 5, Lng: 5}, true},
		{"outside east", model.Coordinates{Lat: 5, Lng: 11}, false},
		{"outside south", model.Coordinates{Lat: -0.5, Lng: 5}, false},
		{"on edge", model.Coordinates{Lat: 0, Lng: 5}, true},
		{"on east edge", model.Coordinates{Lat: 5, Lng: 10}, true},
		{"vertex", model.Coordinates{Lat: 10, Lng: 10}, true},
		{"origin vertex", model.Coordinates{Lat: 0, Lng: 0}, true},
		{"just outside corner", model.Coordinates{Lat: 10.0001, Lng: 10.0001}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ring.Contains(tc.point))
		})
	}
}

func TestRingContainsConcave(t *testing.T) {
	// U shape opening north
	u := []model.Coordinates{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 3}, {Lat: 3, Lng: 3}, {Lat: 3, Lng: 2},
		{Lat: 1, Lng: 2}, {Lat: 1, Lng: 1}, {Lat: 3, Lng: 1}, {Lat: 3, Lng: 0},
	}
	ring, err := NewRing(u)
	require.NoError(t, err)

	assert.True(t, ring.Contains(model.Coordinates{Lat: 2, Lng: 0.5}))
	assert.True(t, ring.Contains(model.Coordinates{Lat: 2, Lng: 2.5}))
	assert.False(t, ring.Contains(model.Coordinates{Lat: 2, Lng: 1.5}), "notch is outside")
	assert.True(t, ring.Contains(model.Coordinates{Lat: 1, Lng: 1.5}), "notch floor is boundary")
}

func TestNewRingClosesAndRejectsDegenerate(t *testing.T) {
	ring, err := NewRing(square())
	require.NoError(t, err)
	pts := ring.Points()
	assert.Len(t, pts, 5)
	assert.Equal(t, pts[0], pts[len(pts)-1])
	assert.Equal(t, Bounds{MinLat: 0, MinLng: 0, MaxLat: 10, MaxLng: 10}, ring.Bounds())

	_, err = NewRing([]model.Coordinates{{Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}, {Lat: 1, Lng: 1}})
	assert.ErrorIs(t, err, ErrDegenerateRing)

	_, err = NewRing([]model.Coordinates{{Lat: 95, Lng: 1}, {Lat: 2, Lng: 2}, {Lat: 1, Lng: 3}})
	assert.Error(t, err)
}

func TestContainsSanFrancisco(t *testing.T) {
	sf := []model.Coordinates{
		{Lat: 37.70, Lng: -122.52},
		{Lat: 37.70, Lng: -122.35},
		{Lat: 37.83, Lng: -122.35},
		{Lat: 37.83, Lng: -122.52},
	}
	assert.True(t, Contains(sf, model.Coordinates{Lat: 37.7749, Lng: -122.4194}))
	assert.False(t, Contains(sf, model.Coordinates{Lat: 0, Lng: 0}))
}
