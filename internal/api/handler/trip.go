// Package handler provides HTTP handlers for the planner's control surface.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ecodrive/ecodrive/internal/api/models"
	"github.com/ecodrive/ecodrive/internal/api/response"
	"github.com/ecodrive/ecodrive/internal/conditions"
	"github.com/ecodrive/ecodrive/internal/geocode"
	"github.com/ecodrive/ecodrive/internal/planner"
	"github.com/ecodrive/ecodrive/internal/provider/resilience"
	"github.com/ecodrive/ecodrive/internal/routing"
	"github.com/ecodrive/ecodrive/internal/scoring"
	"github.com/ecodrive/ecodrive/internal/session"
	"github.com/ecodrive/ecodrive/internal/tracker"
	"github.com/ecodrive/ecodrive/pkg/polyline"
)

// TripHandler handles trip planning and selection endpoints.
type TripHandler struct {
	planner *planner.Service
	tracker *tracker.Tracker
}

// NewTripHandler creates a new TripHandler. The tracker may be nil when
// position tracking is disabled.
func NewTripHandler(p *planner.Service, t *tracker.Tracker) *TripHandler {
	return &TripHandler{planner: p, tracker: t}
}

// PlanTrip handles POST /v1/trips:plan.
func (h *TripHandler) PlanTrip(w http.ResponseWriter, r *http.Request) {
	var req models.PlanTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	planReq := planner.PlanRequest{
		Country:    req.Country,
		SourceText: req.Source,
		DestText:   req.Destination,
	}
	if req.UseCurrentLocation {
		if h.tracker == nil {
			response.Conflict(w, r, "position tracking is not enabled")
			return
		}
		current := h.tracker.Current()
		if current.Position == nil {
			response.Conflict(w, r, "no position fix available")
			return
		}
		c := current.Position.Coordinate
		planReq.StartOverride = &c
	}

	result, err := h.planner.PlanTrip(r.Context(), planReq)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toTripResponse(result))
}

// SelectRoute handles POST /v1/trips/active/route.
func (h *TripHandler) SelectRoute(w http.ResponseWriter, r *http.Request) {
	var req models.SelectRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if err := h.planner.SelectRoute(req.ID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	hud, err := h.planner.ActiveHUD()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toHUDView(hud))
}

// GetActiveTrip handles GET /v1/trips/active.
func (h *TripHandler) GetActiveTrip(w http.ResponseWriter, r *http.Request) {
	hud, err := h.planner.ActiveHUD()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := models.TripResponse{
		Routes: toRouteViews(h.planner.Routes()),
		HUD:    toHUDView(hud),
	}
	if trip, ok := h.planner.ActiveTrip(); ok {
		resp.TripID = trip.ID
		resp.Country = trip.Country
		resp.Source = trip.SourceText
		resp.Destination = trip.DestText
	}
	if id, ok := h.planner.ActiveRouteID(); ok {
		resp.ActiveID = id
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// EndTrip handles DELETE /v1/trips/active.
func (h *TripHandler) EndTrip(w http.ResponseWriter, r *http.Request) {
	if err := h.planner.EndTrip(r.Context()); err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// NearbySearch handles POST /v1/nearby.
func (h *TripHandler) NearbySearch(w http.ResponseWriter, r *http.Request) {
	var req models.NearbySearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	places, err := h.planner.NearbySearch(r.Context(), req.Category)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	resp := models.NearbySearchResponse{Places: make([]models.PlaceView, 0, len(places))}
	for _, p := range places {
		resp.Places = append(resp.Places, models.PlaceView{
			Label:    p.Label,
			Position: models.Point{Lat: p.Coordinate.Lat, Lon: p.Coordinate.Lon},
		})
	}
	response.JSON(w, r, http.StatusOK, resp)
}

func toTripResponse(result *planner.PlanResult) models.TripResponse {
	resp := models.TripResponse{
		ActiveID: result.ActiveID,
		Routes:   toRouteViews(result.Routes),
	}
	if result.Trip != nil {
		resp.TripID = result.Trip.ID
		resp.Country = result.Trip.Country
		resp.Source = result.Trip.SourceText
		resp.Destination = result.Trip.DestText
	}
	for _, route := range result.Routes {
		if route.ID == result.ActiveID {
			resp.HUD = models.HUDView{
				DistanceMeters:  route.DistanceMeters,
				DurationSeconds: route.DurationSeconds,
				FirstManeuver:   route.FirstManeuver,
				Conditions:      toConditionsView(result.Conditions),
			}
			break
		}
	}
	return resp
}

func toRouteViews(routes []scoring.ScoredRoute) []models.RouteView {
	views := make([]models.RouteView, 0, len(routes))
	for _, route := range routes {
		views = append(views, models.RouteView{
			ID:              route.ID,
			Geometry:        polyline.Encode(route.Geometry),
			DistanceMeters:  route.DistanceMeters,
			DurationSeconds: route.DurationSeconds,
			FirstManeuver:   route.FirstManeuver,
			AQI:             route.MidpointAQI,
			PollutionScore:  route.PollutionScore,
			TimeSavedPct:    route.TimeSavedPct,
			HealthSavedPct:  route.HealthSavedPct,
		})
	}
	return views
}

func toHUDView(hud planner.HUD) models.HUDView {
	return models.HUDView{
		DistanceMeters:  hud.DistanceMeters,
		DurationSeconds: hud.DurationSeconds,
		FirstManeuver:   hud.FirstManeuver,
		Conditions:      toConditionsView(hud.Conditions),
	}
}

func toConditionsView(report conditions.Report) models.ConditionsView {
	return models.ConditionsView{
		TemperatureC: report.TemperatureC,
		AQI:          report.AQI,
	}
}

// writeDomainError maps domain errors to Problem responses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, planner.ErrInvalidInput):
		response.Unprocessable(w, r, err.Error())
	case errors.Is(err, geocode.ErrNotFound):
		response.NotFound(w, r, "place not found")
	case errors.Is(err, planner.ErrUnknownRoute):
		response.NotFound(w, r, "route id not in current set")
	case errors.Is(err, planner.ErrNoActiveTrip), errors.Is(err, session.ErrNoActiveTrip):
		response.NotFound(w, r, "no active trip")
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NotFound(w, r, "no route between those points")
	case errors.Is(err, planner.ErrRestoreInProgress), errors.Is(err, planner.ErrSuperseded):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, tracker.ErrPermissionDenied), errors.Is(err, tracker.ErrNoFix):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, routing.ErrProviderUnavailable),
		errors.Is(err, geocode.ErrProviderUnavailable),
		errors.Is(err, conditions.ErrUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen):
		response.BadGateway(w, r, "upstream provider unavailable")
	case errors.Is(err, routing.ErrRateLimitExceeded):
		response.TooManyRequests(w, r, "upstream rate limit exceeded")
	default:
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
