// Package api provides the HTTP control surface for the trip planner.
package api

import (
	"context"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/api/handler"
	"github.com/ecodrive/ecodrive/internal/api/middleware"
	"github.com/ecodrive/ecodrive/internal/planner"
	"github.com/ecodrive/ecodrive/internal/provider/resilience"
	"github.com/ecodrive/ecodrive/internal/tracker"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// BaseContext scopes long-lived work started by handlers, like the
	// tracker's position subscription. Defaults to context.Background().
	BaseContext context.Context

	Planner  *planner.Service
	Tracker  *tracker.Tracker
	Registry *resilience.Registry

	// PositionSource accepts device position readings pushed over HTTP.
	// Optional; nil disables the ingestion endpoint.
	PositionSource *tracker.PushSource
}

// NewRouter creates a new chi router with all routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ecodrive-planner"
	}
	baseCtx := cfg.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Registry)
	tripHandler := handler.NewTripHandler(cfg.Planner, cfg.Tracker)
	metadataHandler := handler.NewMetadataHandler()

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Metadata endpoints
		r.Route("/metadata", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/countries", metadataHandler.ListCountries)
		})

		// Planning fans out to external providers - strict rate limiting
		r.With(expensiveRateLimit).Post("/trips:plan", tripHandler.PlanTrip)

		r.Route("/trips/active", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/", tripHandler.GetActiveTrip)
			r.Delete("/", tripHandler.EndTrip)
			r.Post("/route", tripHandler.SelectRoute)
		})

		r.With(expensiveRateLimit).Post("/nearby", tripHandler.NearbySearch)

		if cfg.Tracker != nil {
			trackingHandler := handler.NewTrackingHandler(baseCtx, cfg.Tracker, cfg.PositionSource)
			r.Route("/tracking", func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Post("/follow", trackingHandler.SetFollow)
				r.Get("/position", trackingHandler.GetPosition)
				r.Post("/position", trackingHandler.PublishPosition)
			})
			r.With(standardRateLimit).Post("/tracking:start", trackingHandler.StartTracking)
		}
	})

	return r
}
