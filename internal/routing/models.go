// Package routing provides driving route acquisition between two points.
package routing

import (
	"context"
	"errors"
	"time"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the routing provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNoRouteFound indicates no candidate routes exist between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidCoordinates indicates the provided coordinates are invalid or out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Provider defines the interface for routing providers.
type Provider interface {
	// GetRoutes retrieves candidate driving routes between two points,
	// including alternatives when the provider has them.
	GetRoutes(ctx context.Context, req RoutesRequest) (*RoutesResponse, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// RoutesRequest is the request for computing routes.
type RoutesRequest struct {
	Start geo.Coordinate
	End   geo.Coordinate
	// Alternatives asks the provider for alternative routes when supported.
	Alternatives bool
}

// RoutesResponse is the response containing candidate routes.
type RoutesResponse struct {
	Candidates []Candidate
	Provider   string
	FetchedAt  time.Time
}

// Candidate is one path between the resolved start and end coordinates.
// IDs are assigned by arrival order within one planning request; id 0 is
// the canonical first-returned route.
type Candidate struct {
	ID              int
	Geometry        []geo.Coordinate // len >= 2; endpoints equal start/end
	DistanceMeters  float64
	DurationSeconds float64
	// FirstManeuver is a short "type + road name" description of the first
	// step, used for the turn HUD. Optional.
	FirstManeuver string
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
