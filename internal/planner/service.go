package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/conditions"
	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/geocode"
	"github.com/ecodrive/ecodrive/internal/routing"
	"github.com/ecodrive/ecodrive/internal/scoring"
	"github.com/ecodrive/ecodrive/internal/session"
)

// ErrSuperseded is returned to a planning request whose results arrived
// after a newer request committed. The newer state is left untouched.
var ErrSuperseded = errors.New("planning request superseded")

const defaultNearbyLimit = 5

// Fractions of the route extent added as viewport padding. The bottom
// gets extra room so the route summary sheet does not cover the path.
const (
	padFractionTop    = 0.10
	padFractionSide   = 0.10
	padFractionBottom = 0.35
)

// ServiceConfig holds the planner's collaborators.
type ServiceConfig struct {
	Geocoder   Geocoder
	Router     Router
	Scorer     Scorer
	Conditions ConditionsReporter
	Sessions   SessionStore
	Surface    Surface
	Logger     zerolog.Logger

	// NearbyLimit caps nearby-search results. Defaults to 5.
	NearbyLimit int
}

// Service owns one planning session. Safe for concurrent use.
type Service struct {
	geocoder    Geocoder
	router      Router
	scorer      Scorer
	conditions  ConditionsReporter
	sessions    SessionStore
	surface     Surface
	logger      zerolog.Logger
	nearbyLimit int

	// token identifies the newest planning request. Completions carrying
	// an older token are discarded without touching state.
	token     atomic.Uint64
	restoring atomic.Bool

	mu       sync.Mutex
	routes   []scoring.ScoredRoute
	activeID int
	report   conditions.Report
	trip     *session.Trip
}

// NewService creates a planner service.
func NewService(cfg ServiceConfig) *Service {
	limit := cfg.NearbyLimit
	if limit <= 0 {
		limit = defaultNearbyLimit
	}
	return &Service{
		geocoder:    cfg.Geocoder,
		router:      cfg.Router,
		scorer:      cfg.Scorer,
		conditions:  cfg.Conditions,
		sessions:    cfg.Sessions,
		surface:     cfg.Surface,
		logger:      cfg.Logger.With().Str("component", "planner").Logger(),
		nearbyLimit: limit,
	}
}

// PlanTrip resolves both endpoints, acquires and scores routes, refreshes
// the overlay, and persists the trip snapshot. On any failure the previous
// route set and selection remain intact.
func (s *Service) PlanTrip(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if s.restoring.Load() {
		return nil, ErrRestoreInProgress
	}
	return s.plan(ctx, req)
}

func (s *Service) plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	token := s.token.Add(1)

	start, end, err := s.resolveEndpoints(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := s.router.GetRoutes(ctx, routing.RoutesRequest{
		Start:        start,
		End:          end,
		Alternatives: true,
	})
	if err != nil {
		return nil, fmt.Errorf("acquire routes: %w", err)
	}

	scored, err := s.scorer.Score(ctx, resp.Candidates)
	if err != nil {
		return nil, fmt.Errorf("score routes: %w", err)
	}

	report := s.conditions.Current(ctx, start)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token.Load() != token {
		s.logger.Debug().Uint64("token", token).Msg("discarding superseded plan")
		return nil, ErrSuperseded
	}

	sourceText := req.SourceText
	if req.StartOverride != nil && strings.TrimSpace(sourceText) == "" {
		sourceText = fmt.Sprintf("%.6f, %.6f", start.Lat, start.Lon)
	}
	trip, err := s.sessions.SaveActiveTrip(ctx, req.Country, sourceText, req.DestText, start, end)
	if err != nil {
		// The plan itself succeeded. Keep going with an unsaved trip.
		s.logger.Warn().Err(err).Msg("failed to persist trip snapshot")
	}

	s.routes = scored
	s.activeID = scored[0].ID
	s.report = report
	s.trip = trip

	s.surface.SetMarkers(start, end)
	s.surface.DrawRoutes(scored, s.activeID)
	s.surface.FitExtent(routeExtent(scored))

	s.logger.Info().
		Int("routes", len(scored)).
		Str("provider", resp.Provider).
		Msg("trip planned")

	return &PlanResult{
		Trip:       trip,
		Routes:     append([]scoring.ScoredRoute(nil), scored...),
		ActiveID:   s.activeID,
		Conditions: report,
	}, nil
}

func (s *Service) resolveEndpoints(ctx context.Context, req PlanRequest) (start, end geo.Coordinate, err error) {
	var (
		wg       sync.WaitGroup
		startErr error
		endErr   error
	)
	if req.StartOverride != nil {
		start = *req.StartOverride
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start, startErr = s.geocoder.Resolve(ctx, placeQuery(req.SourceText, req.Country))
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		end, endErr = s.geocoder.Resolve(ctx, placeQuery(req.DestText, req.Country))
	}()
	wg.Wait()

	if startErr != nil {
		return start, end, fmt.Errorf("resolve source: %w", startErr)
	}
	if endErr != nil {
		return start, end, fmt.Errorf("resolve destination: %w", endErr)
	}
	return start, end, nil
}

// SelectRoute makes the given route the active one and redraws the
// overlay. The route set is unchanged.
func (s *Service) SelectRoute(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.routes) == 0 {
		return ErrNoActiveTrip
	}
	var selected *scoring.ScoredRoute
	for i := range s.routes {
		if s.routes[i].ID == id {
			selected = &s.routes[i]
			break
		}
	}
	if selected == nil {
		return ErrUnknownRoute
	}
	s.activeID = id
	s.surface.DrawRoutes(s.routes, id)
	// The viewport follows the chosen route, not the whole candidate set.
	s.surface.FitExtent(padExtent(geo.ExtentOf(selected.Geometry)))
	return nil
}

// ActiveHUD reports the display summary for the active route.
func (s *Service) ActiveHUD() (HUD, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.routes {
		if r.ID == s.activeID {
			return HUD{
				DistanceMeters:  r.DistanceMeters,
				DurationSeconds: r.DurationSeconds,
				FirstManeuver:   r.FirstManeuver,
				Conditions:      s.report,
			}, nil
		}
	}
	return HUD{}, ErrNoActiveTrip
}

// Routes returns a copy of the current route set.
func (s *Service) Routes() []scoring.ScoredRoute {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]scoring.ScoredRoute(nil), s.routes...)
}

// ActiveRouteID returns the id of the active route, if a trip is planned.
func (s *Service) ActiveRouteID() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.routes) == 0 {
		return 0, false
	}
	return s.activeID, true
}

// ActiveTrip returns the persisted snapshot of the current trip, if any.
func (s *Service) ActiveTrip() (*session.Trip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trip == nil {
		return nil, false
	}
	t := *s.trip
	return &t, true
}

// EndTrip clears the route set, the overlay, and the persisted snapshot.
func (s *Service) EndTrip(ctx context.Context) error {
	s.mu.Lock()
	s.routes = nil
	s.activeID = 0
	s.report = conditions.Report{}
	s.trip = nil
	s.surface.Clear()
	s.mu.Unlock()

	if err := s.sessions.ClearActiveTrip(ctx); err != nil {
		return fmt.Errorf("clear trip snapshot: %w", err)
	}
	s.logger.Info().Msg("trip ended")
	return nil
}

// Restore replays a persisted trip, if one exists, by re-running the full
// planning flow from its stored inputs. While a restore is in flight new
// planning requests are rejected with ErrRestoreInProgress.
func (s *Service) Restore(ctx context.Context) error {
	s.restoring.Store(true)
	defer s.restoring.Store(false)

	trip, err := s.sessions.LoadActiveTrip(ctx)
	if errors.Is(err, session.ErrNoActiveTrip) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load trip snapshot: %w", err)
	}

	_, err = s.plan(ctx, PlanRequest{
		Country:    trip.Country,
		SourceText: trip.SourceText,
		DestText:   trip.DestText,
	})
	if err != nil {
		// The snapshot stays put so a later restore can retry.
		return fmt.Errorf("replay trip: %w", err)
	}
	s.logger.Info().Str("trip_id", trip.ID).Msg("trip restored")
	return nil
}

// NearbySearch runs a bounded category search over the current viewport
// and marks the results on the surface.
func (s *Service) NearbySearch(ctx context.Context, category string) ([]geocode.Place, error) {
	if strings.TrimSpace(category) == "" {
		return nil, ErrInvalidInput
	}
	places, err := s.geocoder.Nearby(ctx, category, s.surface.Extent(), s.nearbyLimit)
	if err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}
	s.surface.DrawPlaces(places)
	return places, nil
}

func validateRequest(req PlanRequest) error {
	if req.StartOverride == nil && blankOrPlaceholder(req.SourceText) {
		return ErrInvalidInput
	}
	if blankOrPlaceholder(req.DestText) {
		return ErrInvalidInput
	}
	return nil
}

// blankOrPlaceholder catches empty fields and untouched placeholder text
// such as "Your location" or "Your destination".
func blankOrPlaceholder(text string) bool {
	trimmed := strings.TrimSpace(text)
	return trimmed == "" || strings.Contains(trimmed, "Your")
}

func placeQuery(text, country string) string {
	text = strings.TrimSpace(text)
	country = strings.TrimSpace(country)
	if country == "" {
		return text
	}
	return fmt.Sprintf("%s, %s", text, country)
}

func routeExtent(routes []scoring.ScoredRoute) geo.BoundingBox {
	var all []geo.Coordinate
	for _, r := range routes {
		all = append(all, r.Geometry...)
	}
	return padExtent(geo.ExtentOf(all))
}

func padExtent(box geo.BoundingBox) geo.BoundingBox {
	width := box.MaxLon - box.MinLon
	height := box.MaxLat - box.MinLat
	return box.Pad(
		height*padFractionTop,
		width*padFractionSide,
		height*padFractionBottom,
		width*padFractionSide,
	)
}
