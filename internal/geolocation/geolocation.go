// Package geolocation produces the initial position for a draft. A failed
// fix is never fatal: the reporter places the report manually instead.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/model"
)

// DefaultTimeout bounds a single position fix.
const DefaultTimeout = 10 * time.Second

// Advisory is shown whenever the automatic fix fails.
const Advisory = "We couldn't determine your location automatically. Move the map to place the report manually."

var (
	ErrUnavailable      = errors.New("geolocation: unavailable")
	ErrPermissionDenied = errors.New("geolocation: permission denied")
)

// Provider attempts one position fix.
type Provider interface {
	Locate(ctx context.Context) (model.Coordinates, error)
}

// Resolution is the outcome of a fix attempt. Coords is nil on failure.
type Resolution struct {
	Coords   *model.Coordinates
	Method   model.GeoMethod
	Advisory string
}

func (r Resolution) OK() bool { return r.Coords != nil }

// Policy makes a single bounded attempt with no automatic retries.
type Policy struct {
	provider Provider
	timeout  time.Duration
}

func NewPolicy(p Provider, timeout time.Duration) *Policy {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Policy{provider: p, timeout: timeout}
}

func (p *Policy) Resolve(ctx context.Context) Resolution {
	if p.provider == nil {
		return manual()
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	c, err := p.provider.Locate(ctx)
	if err == nil && !c.Valid() {
		err = fmt.Errorf("%w: fix %s out of range", ErrUnavailable, c)
	}
	if err != nil {
		logger.Log.WithError(err).Warn("geolocation: automatic fix failed")
		return manual()
	}
	return Resolution{Coords: &c, Method: model.GeoMethodAuto}
}

func manual() Resolution {
	return Resolution{Method: model.GeoMethodManual, Advisory: Advisory}
}

// Static always yields the same position.
type Static struct {
	Coords model.Coordinates
}

func (s Static) Locate(ctx context.Context) (model.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return model.Coordinates{}, err
	}
	return s.Coords, nil
}

// Disabled always fails, forcing manual placement.
type Disabled struct{}

func (Disabled) Locate(context.Context) (model.Coordinates, error) {
	return model.Coordinates{}, ErrPermissionDenied
}
