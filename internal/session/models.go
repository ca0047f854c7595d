// Package session persists the minimal state needed to resume an
// in-progress trip across restarts.
package session

import (
	"errors"
	"time"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// Repository errors.
var (
	// ErrNoActiveTrip indicates no trip snapshot is stored.
	ErrNoActiveTrip = errors.New("no active trip")
)

// Trip is the persisted snapshot of an active trip. Source and destination
// are stored as the user's free text, not resolved coordinates; restore
// re-geocodes them, which can drift if upstream results change. The start
// and end coordinates are kept alongside for display before re-resolution.
type Trip struct {
	ID         string
	Country    string
	SourceText string
	DestText   string
	Start      geo.Coordinate
	End        geo.Coordinate
	SavedAt    time.Time
}
