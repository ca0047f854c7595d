// Package scoring turns raw route candidates into a comparably-scored set
// ranked by environmental cost.
package scoring

import (
	"context"

	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/routing"
)

// ScoredRoute is a route candidate plus its derived environmental metrics.
// A scored set is computed once per planning request and replaced wholesale
// on the next request; individual entries are never mutated.
type ScoredRoute struct {
	routing.Candidate

	// MidpointAQI is the AQI sampled at the geometry midpoint, or the
	// moderate default when sampling failed.
	MidpointAQI int

	// PollutionScore is distanceKm * midpointAQI; larger is worse.
	PollutionScore float64

	// TimeSavedPct and HealthSavedPct are in [0, 100], relative to the
	// worst candidate in the set. The worst candidate scores 0.
	TimeSavedPct   float64
	HealthSavedPct float64
}

// Midpoint returns the coordinate nearest the middle of the route geometry.
func Midpoint(c routing.Candidate) geo.Coordinate {
	return c.Geometry[geo.MidpointIndex(len(c.Geometry))]
}

// AQISampler supplies an AQI reading at a coordinate.
type AQISampler interface {
	SampleAQI(ctx context.Context, c geo.Coordinate) (int, error)
}
