// Package location acquires position fixes for attendance submissions. It
// wraps a callback-style OS location provider in cancellable calls and keeps
// a short-lived cache warmed by a background watch.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/attendance-tui/internal/models"
)

// FixOptions mirrors the options an OS location API takes for one request.
type FixOptions struct {
	// Timeout bounds a watch's individual fix attempts. Single fixes are
	// bounded by their context instead.
	Timeout time.Duration
	// MaximumAge allows the provider to answer with a fix this old.
	MaximumAge time.Duration
	// DistanceFilter is the minimum movement in meters before a watch
	// reports again.
	DistanceFilter float64
	HighAccuracy   bool
}

// PositionErrorCode follows the W3C geolocation error codes.
type PositionErrorCode int

const (
	PermissionDenied    PositionErrorCode = 1
	PositionUnavailable PositionErrorCode = 2
	Timeout             PositionErrorCode = 3
)

func (c PositionErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case PositionUnavailable:
		return "position unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

// PositionError is a failure reported by the provider.
type PositionError struct {
	Message string
	Code    PositionErrorCode
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return "location error: " + e.Code.String()
	}
	return "location error: " + e.Code.String() + ": " + e.Message
}

// CodeOf returns the position error code carried by err, or 0.
func CodeOf(err error) PositionErrorCode {
	var pe *PositionError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return 0
}

// Provider is the device location stack.
type Provider interface {
	// CurrentPosition returns one fix. It must return promptly once ctx is done.
	CurrentPosition(ctx context.Context, opts FixOptions) (models.LocationSample, error)
	// Watch delivers fixes until the returned stop function is called.
	// Callbacks may run on any goroutine.
	Watch(opts FixOptions, onFix func(models.LocationSample), onErr func(error)) (stop func(), err error)
}
