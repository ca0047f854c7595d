package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ecodrive/ecodrive/internal/api/models"
	"github.com/ecodrive/ecodrive/internal/api/response"
	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/tracker"
)

// TrackingHandler handles live position tracking endpoints.
type TrackingHandler struct {
	// baseCtx scopes the position subscription to the process lifetime,
	// not the request that started it.
	baseCtx context.Context
	tracker *tracker.Tracker
	source  *tracker.PushSource
}

// NewTrackingHandler creates a new TrackingHandler. The source may be nil
// when positions arrive from somewhere other than the HTTP surface.
func NewTrackingHandler(baseCtx context.Context, t *tracker.Tracker, source *tracker.PushSource) *TrackingHandler {
	return &TrackingHandler{baseCtx: baseCtx, tracker: t, source: source}
}

// StartTracking handles POST /v1/tracking:start. Starting an already
// running tracker is a no-op.
func (h *TrackingHandler) StartTracking(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Start(h.baseCtx); err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toTrackedPositionView(h.tracker.Current()))
}

// SetFollow handles POST /v1/tracking/follow.
func (h *TrackingHandler) SetFollow(w http.ResponseWriter, r *http.Request) {
	var req models.FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if err := h.tracker.SetFollow(req.Follow); err != nil {
		writeDomainError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toTrackedPositionView(h.tracker.Current()))
}

// PublishPosition handles POST /v1/tracking/position. The chrome pushes
// device geolocation readings through here.
func (h *TrackingHandler) PublishPosition(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		response.NotFound(w, r, "position ingestion is not enabled")
		return
	}
	var req models.PositionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	c := geo.Coordinate{Lat: req.Lat, Lon: req.Lon}
	if err := c.Validate(); err != nil {
		response.Unprocessable(w, r, err.Error())
		return
	}
	h.source.Publish(tracker.Position{
		Coordinate: c,
		Heading:    req.Heading,
		At:         time.Now(),
	})
	response.NoContent(w, r)
}

// GetPosition handles GET /v1/tracking/position.
func (h *TrackingHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	current := h.tracker.Current()
	if current.Position == nil {
		response.NotFound(w, r, "no position fix yet")
		return
	}
	response.JSON(w, r, http.StatusOK, toTrackedPositionView(current))
}

func toTrackedPositionView(p tracker.TrackedPosition) models.TrackedPositionView {
	view := models.TrackedPositionView{
		Follow:  p.Follow,
		Running: p.Running,
	}
	if p.Position != nil {
		view.Position = models.Point{Lat: p.Position.Coordinate.Lat, Lon: p.Position.Coordinate.Lon}
		view.Heading = p.Position.Heading
		view.At = models.Timestamp(p.Position.At)
	}
	return view
}
