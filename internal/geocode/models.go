// Package geocode resolves free-text place queries to coordinates and runs
// bounded nearby-place searches.
package geocode

import (
	"context"
	"errors"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// Sentinel errors for geocoding operations.
var (
	// ErrNotFound indicates the query produced no usable result. Network
	// failures surface as ErrNotFound too: the planner treats "could not
	// resolve" uniformly, per the adapter contract.
	ErrNotFound = errors.New("no location found for query")
	// ErrProviderUnavailable indicates the geocoding provider is down.
	ErrProviderUnavailable = errors.New("geocoding provider unavailable")
)

// Place is a labeled coordinate returned by nearby search.
type Place struct {
	Coordinate geo.Coordinate
	Label      string
}

// Provider defines the interface for geocoding providers.
type Provider interface {
	// Search resolves a free-text query to its first-result coordinate.
	// Returns ErrNotFound (possibly wrapped) when nothing matches.
	Search(ctx context.Context, query string) (geo.Coordinate, error)

	// Nearby finds places matching a category inside the viewbox. An empty
	// result is valid, not an error.
	Nearby(ctx context.Context, category string, viewbox geo.BoundingBox, limit int) ([]Place, error)

	// Name returns the provider identifier for logging.
	Name() string
}
