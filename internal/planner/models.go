// Package planner orchestrates a planning session: geocoding, route
// acquisition, scoring, selection state, overlay redraws, and trip
// persistence. All session state lives on the Service; there are no
// package-level globals.
package planner

import (
	"context"
	"errors"

	"github.com/ecodrive/ecodrive/internal/conditions"
	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/geocode"
	"github.com/ecodrive/ecodrive/internal/routing"
	"github.com/ecodrive/ecodrive/internal/scoring"
	"github.com/ecodrive/ecodrive/internal/session"
)

// Sentinel errors for planning operations.
var (
	// ErrInvalidInput indicates required trip fields are blank or still
	// holding placeholder text. No adapter calls are made in that case.
	ErrInvalidInput = errors.New("source and destination are required")
	// ErrUnknownRoute indicates a selection outside the current route set.
	ErrUnknownRoute = errors.New("route id not in current set")
	// ErrNoActiveTrip indicates an operation that needs a planned trip.
	ErrNoActiveTrip = errors.New("no active trip")
	// ErrRestoreInProgress rejects planning requests until session restore
	// has run to completion, so a half-restored snapshot is never
	// overwritten.
	ErrRestoreInProgress = errors.New("session restore in progress")
)

// PlanRequest describes one "plan trip" action.
type PlanRequest struct {
	Country    string
	SourceText string
	DestText   string

	// StartOverride skips source geocoding, used for the "current
	// location as source" shortcut. SourceText may be empty when set.
	StartOverride *geo.Coordinate
}

// PlanResult is the outcome of a successful planning request.
type PlanResult struct {
	Trip       *session.Trip
	Routes     []scoring.ScoredRoute
	ActiveID   int
	Conditions conditions.Report
}

// HUD is the display state for the active selection.
type HUD struct {
	DistanceMeters  float64
	DurationSeconds float64
	FirstManeuver   string
	Conditions      conditions.Report
}

// Surface is the map rendering collaborator. The planner only instructs;
// drawing is outside the core.
type Surface interface {
	// SetMarkers places the start and end markers.
	SetMarkers(start, end geo.Coordinate)

	// DrawRoutes redraws all candidate geometries with the active one
	// emphasized (wider stroke, higher priority, distinct color).
	DrawRoutes(routes []scoring.ScoredRoute, activeID int)

	// DrawPlaces adds markers for nearby-search results.
	DrawPlaces(places []geocode.Place)

	// FitExtent fits the viewport to the box.
	FitExtent(box geo.BoundingBox)

	// Extent reports the current viewport extent.
	Extent() geo.BoundingBox

	// Clear removes all overlay features.
	Clear()
}

// Geocoder resolves text and runs bounded nearby searches.
type Geocoder interface {
	Resolve(ctx context.Context, query string) (geo.Coordinate, error)
	Nearby(ctx context.Context, category string, viewbox geo.BoundingBox, limit int) ([]geocode.Place, error)
}

// Router acquires candidate routes.
type Router interface {
	GetRoutes(ctx context.Context, req routing.RoutesRequest) (*routing.RoutesResponse, error)
}

// Scorer turns candidates into a scored set.
type Scorer interface {
	Score(ctx context.Context, candidates []routing.Candidate) ([]scoring.ScoredRoute, error)
}

// ConditionsReporter supplies the weather/AQI display snapshot.
type ConditionsReporter interface {
	Current(ctx context.Context, c geo.Coordinate) conditions.Report
}

// SessionStore persists and restores the active trip.
type SessionStore interface {
	SaveActiveTrip(ctx context.Context, country, sourceText, destText string, start, end geo.Coordinate) (*session.Trip, error)
	LoadActiveTrip(ctx context.Context) (*session.Trip, error)
	ClearActiveTrip(ctx context.Context) error
}
