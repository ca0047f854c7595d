// Package main provides the entrypoint for the ecodrive trip planner.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/api"
	"github.com/ecodrive/ecodrive/internal/api/middleware"
	"github.com/ecodrive/ecodrive/internal/conditions"
	"github.com/ecodrive/ecodrive/internal/conditions/openmeteo"
	"github.com/ecodrive/ecodrive/internal/conditions/waqi"
	"github.com/ecodrive/ecodrive/internal/geocode"
	"github.com/ecodrive/ecodrive/internal/geocode/nominatim"
	"github.com/ecodrive/ecodrive/internal/planner"
	"github.com/ecodrive/ecodrive/internal/provider/resilience"
	"github.com/ecodrive/ecodrive/internal/routing"
	"github.com/ecodrive/ecodrive/internal/routing/osrm"
	"github.com/ecodrive/ecodrive/internal/scoring"
	"github.com/ecodrive/ecodrive/internal/session"
	"github.com/ecodrive/ecodrive/internal/surface"
	"github.com/ecodrive/ecodrive/internal/telemetry"
	"github.com/ecodrive/ecodrive/internal/tracker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "ecodrive-planner"

	// Load .env if present; real environment wins
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting ecodrive planner")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	ctx := context.Background()
	telemetryEnabled := os.Getenv("OTEL_ENABLED") == "true"

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    env,
		OTLPEndpoint:   otlpEndpoint,
		Enabled:        telemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryEnabled {
		log.Info().
			Str("otlp_endpoint", otlpEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Trip snapshot store: redis when configured, in-memory otherwise
	var sessionRepo session.Repository
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisRepo, err := session.NewRedisRepository(redisAddr)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, trip snapshots will not survive restarts")
			sessionRepo = session.NewInMemoryRepository()
		} else {
			log.Info().Str("addr", redisAddr).Msg("redis connected")
			sessionRepo = redisRepo
		}
	} else {
		log.Warn().Msg("REDIS_ADDR not set, trip snapshots will not survive restarts")
		sessionRepo = session.NewInMemoryRepository()
	}
	sessionService := session.NewService(session.ServiceConfig{
		Repository: sessionRepo,
		Logger:     log,
	})

	registry := resilience.NewRegistry()

	geocodeService := geocode.NewService(geocode.ServiceConfig{
		Provider: nominatim.NewClient(nominatim.ClientConfig{
			BaseURL:  os.Getenv("NOMINATIM_BASE_URL"),
			Registry: registry,
			Logger:   log,
		}),
		Logger: log,
	})
	log.Info().Msg("geocoding service initialized")

	routingService := routing.NewService(routing.ServiceConfig{
		Provider: osrm.NewClient(osrm.ClientConfig{
			BaseURL:  os.Getenv("OSRM_BASE_URL"),
			Registry: registry,
			Logger:   log,
		}),
		Logger: log,
	})
	log.Info().Msg("routing service initialized")

	conditionsService := conditions.NewService(conditions.ServiceConfig{
		Weather: openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:  os.Getenv("OPENMETEO_BASE_URL"),
			Registry: registry,
			Logger:   log,
		}),
		AQI: waqi.NewClient(waqi.ClientConfig{
			BaseURL:  os.Getenv("WAQI_BASE_URL"),
			Token:    os.Getenv("WAQI_TOKEN"),
			Registry: registry,
			Logger:   log,
		}),
		Logger: log,
	})
	log.Info().Msg("conditions service initialized")

	scoringEngine := scoring.NewEngine(scoring.EngineConfig{
		Sampler: conditionsService,
		Logger:  log,
	})

	overlay := surface.NewRecorder(log)

	positionSource := tracker.NewPushSource()
	positionTracker := tracker.New(tracker.Config{
		Source: positionSource,
		View:   overlay,
		Logger: log,
	})

	plannerService := planner.NewService(planner.ServiceConfig{
		Geocoder:   geocodeService,
		Router:     routingService,
		Scorer:     scoringEngine,
		Conditions: conditionsService,
		Sessions:   sessionService,
		Surface:    overlay,
		Logger:     log,
	})

	// Replay a persisted trip before accepting new planning requests
	restoreCtx, cancelRestore := context.WithTimeout(ctx, 30*time.Second)
	if err := plannerService.Restore(restoreCtx); err != nil {
		log.Warn().Err(err).Msg("could not restore previous trip")
	}
	cancelRestore()

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        metrics,
		BaseContext:    ctx,
		Planner:        plannerService,
		Tracker:        positionTracker,
		Registry:       registry,
		PositionSource: positionSource,
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
