// Package storage puts uploaded report media somewhere publicly addressable.
package storage

import (
	"context"
	"errors"
)

// ErrDisabled is returned when no media store is configured.
var ErrDisabled = errors.New("storage: media store disabled")

// Object is a single media upload.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// MediaStore uploads an object and returns the URL it is served from.
type MediaStore interface {
	Put(ctx context.Context, obj Object) (string, error)
	Name() string
}

type disabled struct{}

// Disabled returns a MediaStore that rejects every upload.
func Disabled() MediaStore { return disabled{} }

func (disabled) Put(context.Context, Object) (string, error) { return "", ErrDisabled }
func (disabled) Name() string                                { return "none" }
