// Package surface keeps the map overlay state the planner and tracker
// drive. The process has no renderer of its own; the presentation chrome
// polls the HTTP surface for the state recorded here.
package surface

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/geocode"
	"github.com/ecodrive/ecodrive/internal/scoring"
)

// DefaultExtent is the initial viewport before any trip is planned.
var DefaultExtent = geo.BoundingBox{MinLon: 68, MinLat: 6, MaxLon: 98, MaxLat: 36}

// State is a snapshot of the overlay.
type State struct {
	Start, End  geo.Coordinate
	HasMarkers  bool
	Routes      []scoring.ScoredRoute
	ActiveID    int
	Places      []geocode.Place
	Viewport    geo.BoundingBox
	Marker      *geo.Coordinate
	RotationRad float64
}

// Recorder records overlay instructions. It implements the planner's
// drawing surface and the tracker's view.
type Recorder struct {
	logger zerolog.Logger

	mu    sync.Mutex
	state State
}

// NewRecorder creates a Recorder with the default viewport.
func NewRecorder(logger zerolog.Logger) *Recorder {
	return &Recorder{
		logger: logger.With().Str("component", "surface").Logger(),
		state:  State{Viewport: DefaultExtent},
	}
}

// SetMarkers places the start and end markers.
func (r *Recorder) SetMarkers(start, end geo.Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Start = start
	r.state.End = end
	r.state.HasMarkers = true
}

// DrawRoutes replaces the drawn route set.
func (r *Recorder) DrawRoutes(routes []scoring.ScoredRoute, activeID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Routes = append([]scoring.ScoredRoute(nil), routes...)
	r.state.ActiveID = activeID
	r.logger.Debug().Int("routes", len(routes)).Int("active", activeID).Msg("routes drawn")
}

// DrawPlaces adds nearby-search markers.
func (r *Recorder) DrawPlaces(places []geocode.Place) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Places = append([]geocode.Place(nil), places...)
}

// FitExtent moves the viewport.
func (r *Recorder) FitExtent(box geo.BoundingBox) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Viewport = box
}

// Extent reports the current viewport.
func (r *Recorder) Extent() geo.BoundingBox {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Viewport
}

// Clear removes all overlay features and resets the viewport.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = State{Viewport: DefaultExtent}
	r.logger.Debug().Msg("overlay cleared")
}

// MoveMarker moves the position marker without touching the viewport.
func (r *Recorder) MoveMarker(c geo.Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Marker = &c
}

// Recenter centers the viewport on the coordinate, preserving its size.
func (r *Recorder) Recenter(c geo.Coordinate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.state.Viewport
	halfW := (v.MaxLon - v.MinLon) / 2
	halfH := (v.MaxLat - v.MinLat) / 2
	r.state.Viewport = geo.BoundingBox{
		MinLon: c.Lon - halfW,
		MinLat: c.Lat - halfH,
		MaxLon: c.Lon + halfW,
		MaxLat: c.Lat + halfH,
	}
	r.state.Marker = &c
}

// Rotate sets the viewport rotation in radians.
func (r *Recorder) Rotate(rad float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.RotationRad = rad
}

// Snapshot returns a copy of the overlay state.
func (r *Recorder) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Routes = append([]scoring.ScoredRoute(nil), r.state.Routes...)
	s.Places = append([]geocode.Place(nil), r.state.Places...)
	if r.state.Marker != nil {
		m := *r.state.Marker
		s.Marker = &m
	}
	return s
}
