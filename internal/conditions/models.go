// Package conditions provides current weather and air quality at a point.
// The two sub-values fail independently; a missing one is nil, never an
// error for the caller.
package conditions

import (
	"context"
	"errors"
	"time"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// Sentinel errors for condition providers.
var (
	// ErrUnavailable indicates the provider could not supply a value.
	ErrUnavailable = errors.New("conditions data unavailable")
)

// DefaultAQI is the "moderate" fallback used when sampling fails.
const DefaultAQI = 50

// Report is a point-in-time snapshot of conditions at a coordinate.
// Fields are nil when the corresponding provider call failed.
type Report struct {
	TemperatureC *float64
	AQI          *int
	FetchedAt    time.Time
}

// WeatherProvider supplies the current temperature at a point.
type WeatherProvider interface {
	CurrentTemperature(ctx context.Context, c geo.Coordinate) (float64, error)
	Name() string
}

// AQIProvider supplies the current air quality index at a point.
type AQIProvider interface {
	CurrentAQI(ctx context.Context, c geo.Coordinate) (int, error)
	Name() string
}
