package geo

import (
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/twpayne/go-polyline"
)

// EncodePolyline renders a ring in the Google encoded polyline format at the
// default 1e-5 precision, for map display. It is lossy; routing never reads it.
func EncodePolyline(points []model.Coordinates) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}

// DecodePolyline is the inverse of EncodePolyline.
func DecodePolyline(encoded string) ([]model.Coordinates, error) {
	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, err
	}
	points := make([]model.Coordinates, len(coords))
	for i, c := range coords {
		points[i] = model.Coordinates{Lat: c[0], Lng: c[1]}
	}
	return points, nil
}
