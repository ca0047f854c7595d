package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/conditions"
	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/geocode"
	"github.com/ecodrive/ecodrive/internal/routing"
	"github.com/ecodrive/ecodrive/internal/scoring"
	"github.com/ecodrive/ecodrive/internal/session"
)

type mockGeocoder struct {
	mu          sync.Mutex
	resolveAddr map[string]geo.Coordinate
	resolveErr  error
	queries     []string
	places      []geocode.Place
	nearbyErr   error
	lastViewbox geo.BoundingBox
	lastLimit   int
}

func (m *mockGeocoder) Resolve(_ context.Context, query string) (geo.Coordinate, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.resolveErr != nil {
		return geo.Coordinate{}, m.resolveErr
	}
	c, ok := m.resolveAddr[query]
	if !ok {
		return geo.Coordinate{}, geocode.ErrNotFound
	}
	return c, nil
}

func (m *mockGeocoder) Nearby(_ context.Context, _ string, viewbox geo.BoundingBox, limit int) ([]geocode.Place, error) {
	m.mu.Lock()
	m.lastViewbox = viewbox
	m.lastLimit = limit
	m.mu.Unlock()
	if m.nearbyErr != nil {
		return nil, m.nearbyErr
	}
	return m.places, nil
}

func (m *mockGeocoder) resolveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

type mockRouter struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, req routing.RoutesRequest) (*routing.RoutesResponse, error)
}

func (m *mockRouter) GetRoutes(_ context.Context, req routing.RoutesRequest) (*routing.RoutesResponse, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()
	return m.fn(call, req)
}

func (m *mockRouter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockScorer struct{}

func (mockScorer) Score(_ context.Context, candidates []routing.Candidate) ([]scoring.ScoredRoute, error) {
	if len(candidates) == 0 {
		return nil, routing.ErrNoRouteFound
	}
	scored := make([]scoring.ScoredRoute, len(candidates))
	for i, c := range candidates {
		scored[i] = scoring.ScoredRoute{Candidate: c, MidpointAQI: 50}
	}
	return scored, nil
}

type mockConditions struct {
	report conditions.Report
}

func (m *mockConditions) Current(context.Context, geo.Coordinate) conditions.Report {
	return m.report
}

type mockSessions struct {
	mu       sync.Mutex
	trip     *session.Trip
	saves    int
	clears   int
	loadGate chan struct{}
	saveErr  error
	clearErr error
}

func (m *mockSessions) SaveActiveTrip(_ context.Context, country, sourceText, destText string, start, end geo.Coordinate) (*session.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.trip = &session.Trip{
		ID:         fmt.Sprintf("trip-%d", m.saves),
		Country:    country,
		SourceText: sourceText,
		DestText:   destText,
		Start:      start,
		End:        end,
		SavedAt:    time.Now(),
	}
	t := *m.trip
	return &t, nil
}

func (m *mockSessions) LoadActiveTrip(context.Context) (*session.Trip, error) {
	if m.loadGate != nil {
		<-m.loadGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.trip == nil {
		return nil, session.ErrNoActiveTrip
	}
	t := *m.trip
	return &t, nil
}

func (m *mockSessions) ClearActiveTrip(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	if m.clearErr != nil {
		return m.clearErr
	}
	m.trip = nil
	return nil
}

func (m *mockSessions) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type mockSurface struct {
	mu           sync.Mutex
	drawCalls    int
	lastActiveID int
	lastRoutes   []scoring.ScoredRoute
	markersSet   int
	fitCalls     int
	lastFit      geo.BoundingBox
	placesDrawn  []geocode.Place
	cleared      int
	extent       geo.BoundingBox
}

func (m *mockSurface) SetMarkers(geo.Coordinate, geo.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markersSet++
}

func (m *mockSurface) DrawRoutes(routes []scoring.ScoredRoute, activeID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drawCalls++
	m.lastActiveID = activeID
	m.lastRoutes = routes
}

func (m *mockSurface) DrawPlaces(places []geocode.Place) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placesDrawn = places
}

func (m *mockSurface) FitExtent(box geo.BoundingBox) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fitCalls++
	m.lastFit = box
}

func (m *mockSurface) Extent() geo.BoundingBox {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.extent
}

func (m *mockSurface) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared++
}

func testCandidates() []routing.Candidate {
	return []routing.Candidate{
		{
			ID:              0,
			Geometry:        []geo.Coordinate{{Lat: 48.85, Lon: 2.35}, {Lat: 47.3, Lon: 3.6}, {Lat: 45.76, Lon: 4.84}},
			DistanceMeters:  400000,
			DurationSeconds: 14400,
			FirstManeuver:   "depart ahead",
		},
		{
			ID:              1,
			Geometry:        []geo.Coordinate{{Lat: 48.85, Lon: 2.35}, {Lat: 47.4, Lon: 3.7}, {Lat: 45.76, Lon: 4.84}},
			DistanceMeters:  420000,
			DurationSeconds: 15000,
			FirstManeuver:   "depart ahead",
		},
	}
}

type fixture struct {
	service  *Service
	geocoder *mockGeocoder
	router   *mockRouter
	sessions *mockSessions
	surface  *mockSurface
}

func newFixture() *fixture {
	geocoder := &mockGeocoder{
		resolveAddr: map[string]geo.Coordinate{
			"Paris, France": {Lat: 48.85, Lon: 2.35},
			"Lyon, France":  {Lat: 45.76, Lon: 4.84},
		},
	}
	router := &mockRouter{
		fn: func(int, routing.RoutesRequest) (*routing.RoutesResponse, error) {
			return &routing.RoutesResponse{Candidates: testCandidates(), Provider: "osrm"}, nil
		},
	}
	sessions := &mockSessions{}
	surface := &mockSurface{}
	svc := NewService(ServiceConfig{
		Geocoder:   geocoder,
		Router:     router,
		Scorer:     mockScorer{},
		Conditions: &mockConditions{},
		Sessions:   sessions,
		Surface:    surface,
		Logger:     zerolog.Nop(),
	})
	return &fixture{service: svc, geocoder: geocoder, router: router, sessions: sessions, surface: surface}
}

func planParisLyon(t *testing.T, f *fixture) *PlanResult {
	t.Helper()
	result, err := f.service.PlanTrip(context.Background(), PlanRequest{
		Country:    "France",
		SourceText: "Paris",
		DestText:   "Lyon",
	})
	if err != nil {
		t.Fatalf("PlanTrip failed: %v", err)
	}
	return result
}

func TestPlanTrip(t *testing.T) {
	f := newFixture()
	result := planParisLyon(t, f)

	if len(result.Routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(result.Routes))
	}
	if result.ActiveID != 0 {
		t.Errorf("expected active route 0, got %d", result.ActiveID)
	}
	if f.surface.markersSet != 1 {
		t.Errorf("expected markers set once, got %d", f.surface.markersSet)
	}
	if f.surface.drawCalls != 1 || f.surface.lastActiveID != 0 {
		t.Errorf("expected one draw with active 0, got %d draws, active %d",
			f.surface.drawCalls, f.surface.lastActiveID)
	}
	if f.surface.fitCalls != 1 {
		t.Errorf("expected one extent fit, got %d", f.surface.fitCalls)
	}
	if f.sessions.saveCount() != 1 {
		t.Errorf("expected one snapshot save, got %d", f.sessions.saveCount())
	}
	if result.Trip == nil || result.Trip.SourceText != "Paris" {
		t.Errorf("unexpected trip snapshot: %+v", result.Trip)
	}
}

func TestPlanTripBlankInput(t *testing.T) {
	cases := []struct {
		name string
		req  PlanRequest
	}{
		{"blank source", PlanRequest{Country: "France", SourceText: "  ", DestText: "Lyon"}},
		{"blank destination", PlanRequest{Country: "France", SourceText: "Paris", DestText: ""}},
		{"placeholder source", PlanRequest{Country: "France", SourceText: "Your location", DestText: "Lyon"}},
		{"placeholder destination", PlanRequest{Country: "France", SourceText: "Paris", DestText: "Your destination"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.service.PlanTrip(context.Background(), tc.req)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if f.geocoder.resolveCalls() != 0 {
				t.Errorf("expected no geocode calls, got %d", f.geocoder.resolveCalls())
			}
			if f.router.callCount() != 0 {
				t.Errorf("expected no route calls, got %d", f.router.callCount())
			}
		})
	}
}

func TestPlanTripCountryScopedQueries(t *testing.T) {
	f := newFixture()
	planParisLyon(t, f)

	f.geocoder.mu.Lock()
	queries := append([]string(nil), f.geocoder.queries...)
	f.geocoder.mu.Unlock()
	if len(queries) != 2 {
		t.Fatalf("expected 2 geocode queries, got %d", len(queries))
	}
	for _, q := range queries {
		if !strings.HasSuffix(q, ", France") {
			t.Errorf("query %q not scoped to country", q)
		}
	}
}

func TestPlanTripStartOverride(t *testing.T) {
	f := newFixture()
	start := geo.Coordinate{Lat: 48.9, Lon: 2.3}
	result, err := f.service.PlanTrip(context.Background(), PlanRequest{
		Country:       "France",
		DestText:      "Lyon",
		StartOverride: &start,
	})
	if err != nil {
		t.Fatalf("PlanTrip failed: %v", err)
	}
	if f.geocoder.resolveCalls() != 1 {
		t.Errorf("expected only destination geocoded, got %d calls", f.geocoder.resolveCalls())
	}
	if result.Trip.SourceText != "48.900000, 2.300000" {
		t.Errorf("unexpected stored source text %q", result.Trip.SourceText)
	}
}

func TestPlanTripFailureKeepsPriorState(t *testing.T) {
	f := newFixture()
	planParisLyon(t, f)

	f.router.mu.Lock()
	f.router.fn = func(int, routing.RoutesRequest) (*routing.RoutesResponse, error) {
		return nil, routing.ErrProviderUnavailable
	}
	f.router.mu.Unlock()

	_, err := f.service.PlanTrip(context.Background(), PlanRequest{
		Country:    "France",
		SourceText: "Paris",
		DestText:   "Lyon",
	})
	if !errors.Is(err, routing.ErrProviderUnavailable) {
		t.Fatalf("expected routing error, got %v", err)
	}
	if got := len(f.service.Routes()); got != 2 {
		t.Errorf("expected prior route set intact, got %d routes", got)
	}
	if _, err := f.service.ActiveHUD(); err != nil {
		t.Errorf("expected HUD still available, got %v", err)
	}
}

func TestPlanTripSupersede(t *testing.T) {
	f := newFixture()
	release := make(chan struct{})
	f.router.fn = func(call int, _ routing.RoutesRequest) (*routing.RoutesResponse, error) {
		if call == 1 {
			<-release
			return &routing.RoutesResponse{
				Candidates: testCandidates()[:1],
				Provider:   "osrm",
			}, nil
		}
		return &routing.RoutesResponse{Candidates: testCandidates(), Provider: "osrm"}, nil
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := f.service.PlanTrip(context.Background(), PlanRequest{
			Country: "France", SourceText: "Paris", DestText: "Lyon",
		})
		errCh <- err
	}()

	// Wait for the first request to reach the blocked router call.
	deadline := time.Now().Add(2 * time.Second)
	for f.router.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first plan never reached the router")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// A newer request commits while the first one is stalled.
	planParisLyon(t, f)
	close(release)

	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", err)
	}
	if got := len(f.service.Routes()); got != 2 {
		t.Errorf("expected newest route set to win, got %d routes", got)
	}
}

func TestSelectRoute(t *testing.T) {
	f := newFixture()
	planParisLyon(t, f)

	if err := f.service.SelectRoute(1); err != nil {
		t.Fatalf("SelectRoute failed: %v", err)
	}
	if f.surface.lastActiveID != 1 {
		t.Errorf("expected redraw with active 1, got %d", f.surface.lastActiveID)
	}
	hud, err := f.service.ActiveHUD()
	if err != nil {
		t.Fatalf("ActiveHUD failed: %v", err)
	}
	if hud.DistanceMeters != 420000 {
		t.Errorf("expected HUD for route 1, got distance %v", hud.DistanceMeters)
	}
	if f.sessions.saveCount() != 1 {
		t.Errorf("selection must not re-save the snapshot, got %d saves", f.sessions.saveCount())
	}
}

func TestSelectRouteFitsSelectedRoute(t *testing.T) {
	f := newFixture()
	// Route 0 runs far south; route 1 stays in a tight northern box.
	f.router.fn = func(int, routing.RoutesRequest) (*routing.RoutesResponse, error) {
		return &routing.RoutesResponse{
			Candidates: []routing.Candidate{
				{
					ID:              0,
					Geometry:        []geo.Coordinate{{Lat: 48.85, Lon: 2.35}, {Lat: 45.0, Lon: 3.6}, {Lat: 48.9, Lon: 2.5}},
					DistanceMeters:  400000,
					DurationSeconds: 14400,
				},
				{
					ID:              1,
					Geometry:        []geo.Coordinate{{Lat: 48.85, Lon: 2.35}, {Lat: 49.0, Lon: 2.4}, {Lat: 48.9, Lon: 2.5}},
					DistanceMeters:  30000,
					DurationSeconds: 2400,
				},
			},
			Provider: "osrm",
		}, nil
	}
	planParisLyon(t, f)

	if err := f.service.SelectRoute(1); err != nil {
		t.Fatalf("SelectRoute failed: %v", err)
	}

	fit := f.surface.lastFit
	if fit.MinLat < 48 {
		t.Errorf("viewport spans the whole set, not the selected route: MinLat=%f", fit.MinLat)
	}
	if fit.MaxLat < 49 || fit.MaxLat > 49.1 {
		t.Errorf("viewport does not cover the selected route: MaxLat=%f", fit.MaxLat)
	}
}

func TestSelectRouteUnknown(t *testing.T) {
	f := newFixture()
	planParisLyon(t, f)
	if err := f.service.SelectRoute(9); !errors.Is(err, ErrUnknownRoute) {
		t.Fatalf("expected ErrUnknownRoute, got %v", err)
	}
}

func TestSelectRouteWithoutTrip(t *testing.T) {
	f := newFixture()
	if err := f.service.SelectRoute(0); !errors.Is(err, ErrNoActiveTrip) {
		t.Fatalf("expected ErrNoActiveTrip, got %v", err)
	}
}

func TestSelectionResetsOnNewPlan(t *testing.T) {
	f := newFixture()
	planParisLyon(t, f)
	if err := f.service.SelectRoute(1); err != nil {
		t.Fatalf("SelectRoute failed: %v", err)
	}
	planParisLyon(t, f)
	hud, err := f.service.ActiveHUD()
	if err != nil {
		t.Fatalf("ActiveHUD failed: %v", err)
	}
	if hud.DistanceMeters != 400000 {
		t.Errorf("expected selection reset to route 0, got distance %v", hud.DistanceMeters)
	}
}

func TestActiveHUDWithoutTrip(t *testing.T) {
	f := newFixture()
	if _, err := f.service.ActiveHUD(); !errors.Is(err, ErrNoActiveTrip) {
		t.Fatalf("expected ErrNoActiveTrip, got %v", err)
	}
}

func TestEndTrip(t *testing.T) {
	f := newFixture()
	planParisLyon(t, f)

	if err := f.service.EndTrip(context.Background()); err != nil {
		t.Fatalf("EndTrip failed: %v", err)
	}
	if got := len(f.service.Routes()); got != 0 {
		t.Errorf("expected empty route set, got %d", got)
	}
	if f.surface.cleared != 1 {
		t.Errorf("expected surface cleared once, got %d", f.surface.cleared)
	}
	if _, err := f.sessions.LoadActiveTrip(context.Background()); !errors.Is(err, session.ErrNoActiveTrip) {
		t.Errorf("expected snapshot cleared, got %v", err)
	}
}

func TestRestoreWithoutSnapshot(t *testing.T) {
	f := newFixture()
	if err := f.service.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if f.router.callCount() != 0 {
		t.Errorf("expected no route calls, got %d", f.router.callCount())
	}
}

func TestRestoreReplaysTrip(t *testing.T) {
	f := newFixture()
	planParisLyon(t, f)

	// A fresh service backed by the same store picks up the snapshot.
	f2 := &fixture{
		geocoder: f.geocoder,
		router:   f.router,
		sessions: f.sessions,
		surface:  &mockSurface{},
	}
	f2.service = NewService(ServiceConfig{
		Geocoder:   f2.geocoder,
		Router:     f2.router,
		Scorer:     mockScorer{},
		Conditions: &mockConditions{},
		Sessions:   f2.sessions,
		Surface:    f2.surface,
		Logger:     zerolog.Nop(),
	})

	if err := f2.service.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := len(f2.service.Routes()); got != 2 {
		t.Errorf("expected restored route set, got %d routes", got)
	}
	if f2.surface.drawCalls != 1 {
		t.Errorf("expected overlay redrawn on restore, got %d draws", f2.surface.drawCalls)
	}
}

func TestRestoreBlocksNewPlans(t *testing.T) {
	f := newFixture()
	f.sessions.loadGate = make(chan struct{})
	f.sessions.trip = &session.Trip{
		ID: "trip-1", Country: "France", SourceText: "Paris", DestText: "Lyon",
	}

	done := make(chan error, 1)
	go func() {
		done <- f.service.Restore(context.Background())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		_, err := f.service.PlanTrip(context.Background(), PlanRequest{
			Country: "France", SourceText: "Paris", DestText: "Lyon",
		})
		if errors.Is(err, ErrRestoreInProgress) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("never saw ErrRestoreInProgress, last err: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(f.sessions.loadGate)
	if err := <-done; err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if _, err := f.service.PlanTrip(context.Background(), PlanRequest{
		Country: "France", SourceText: "Paris", DestText: "Lyon",
	}); err != nil {
		t.Errorf("expected planning accepted after restore, got %v", err)
	}
}

func TestNearbySearch(t *testing.T) {
	f := newFixture()
	f.surface.extent = geo.BoundingBox{MinLon: 2.2, MinLat: 48.8, MaxLon: 2.5, MaxLat: 48.95}
	f.geocoder.places = []geocode.Place{
		{Coordinate: geo.Coordinate{Lat: 48.86, Lon: 2.34}, Label: "Cafe A"},
	}

	places, err := f.service.NearbySearch(context.Background(), "cafe")
	if err != nil {
		t.Fatalf("NearbySearch failed: %v", err)
	}
	if len(places) != 1 {
		t.Fatalf("expected 1 place, got %d", len(places))
	}
	if f.geocoder.lastLimit != defaultNearbyLimit {
		t.Errorf("expected limit %d, got %d", defaultNearbyLimit, f.geocoder.lastLimit)
	}
	if f.geocoder.lastViewbox != f.surface.extent {
		t.Errorf("expected viewport viewbox, got %+v", f.geocoder.lastViewbox)
	}
	if len(f.surface.placesDrawn) != 1 {
		t.Errorf("expected places drawn on surface, got %d", len(f.surface.placesDrawn))
	}
}

func TestNearbySearchBlankCategory(t *testing.T) {
	f := newFixture()
	if _, err := f.service.NearbySearch(context.Background(), "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
