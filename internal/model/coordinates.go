package model

import "fmt"

// Coordinates is a WGS84 position. Latitude comes first everywhere outside the
// persistence layer.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// GeoMethod records where a report's coordinates came from.
type GeoMethod string

const (
	GeoMethodAuto   GeoMethod = "auto"
	GeoMethodManual GeoMethod = "manual"
)

func (m GeoMethod) Valid() bool {
	return m == GeoMethodAuto || m == GeoMethodManual
}
