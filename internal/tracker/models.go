// Package tracker maintains the live device position and the map-follow
// behavior driven by it.
package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// Sentinel errors for tracking operations.
var (
	// ErrPermissionDenied indicates the user declined location access or it
	// is unavailable on the device.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrNoFix indicates no position is known yet.
	ErrNoFix = errors.New("waiting for position signal")
)

// Position is one device location reading. Heading is radians clockwise
// from north, nil when the device does not report one.
type Position struct {
	Coordinate geo.Coordinate
	Heading    *float64
	At         time.Time
}

// Update is one message on a position stream: a reading or a transient
// error. Errors do not terminate the stream.
type Update struct {
	Position *Position
	Err      error
}

// Source is a continuous device-location stream. Subscribe returns
// ErrPermissionDenied when the user declined access; transient failures
// after that arrive as Update.Err.
type Source interface {
	Subscribe(ctx context.Context) (<-chan Update, error)
}

// View is the map surface the tracker drives. Implementations redraw
// asynchronously; calls must not block.
type View interface {
	// MoveMarker moves the position marker without touching the viewport.
	MoveMarker(c geo.Coordinate)

	// Recenter centers the viewport on the coordinate.
	Recenter(c geo.Coordinate)

	// Rotate rotates the viewport by the given angle in radians, used to
	// counter the heading so up matches direction of travel.
	Rotate(rad float64)
}

// TrackedPosition is the tracker's externally visible state.
type TrackedPosition struct {
	Position *Position
	Follow   bool
	Running  bool
}
