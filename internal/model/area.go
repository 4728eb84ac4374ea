package model

import "time"

// Area is an administrative region reports are routed to.
type Area struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Boundary  []Coordinates `json:"boundary"`           // closed ring, first vertex repeated last
	Polyline  string        `json:"polyline,omitempty"` // encoded boundary, display only
	Active    bool          `json:"active"`
	CreatedAt time.Time     `json:"createdAt"`
}

type CreateAreaRequest struct {
	Name     string        `json:"name" validate:"required"`
	Boundary []Coordinates `json:"boundary" validate:"required,min=3,dive"`
	Active   *bool         `json:"active,omitempty"`
}

// CloseRing returns ring with its first vertex appended when it is not already closed.
func CloseRing(ring []Coordinates) []Coordinates {
	if len(ring) == 0 {
		return ring
	}
	out := make([]Coordinates, len(ring), len(ring)+1)
	copy(out, ring)
	if out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}
