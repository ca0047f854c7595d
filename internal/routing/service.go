package routing

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the routing data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache routing data (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.005 ~ 550m).
	// Start/end pairs within the same grid cells share cached data.
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration
}

// Service provides route acquisition with caching in front of the provider.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	mu    sync.RWMutex
	cache map[string]*cachedRoutes
}

type cachedRoutes struct {
	response  *RoutesResponse
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.005
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cache:           make(map[string]*cachedRoutes),
	}
}

// GetRoutes returns candidate routes between two points, using cached data
// when available and not expired.
func (s *Service) GetRoutes(ctx context.Context, req RoutesRequest) (*RoutesResponse, error) {
	if err := req.Start.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_START",
			Message:  "invalid start coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}
	if err := req.End.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_END",
			Message:  "invalid end coordinates",
			Err:      ErrInvalidCoordinates,
		}
	}

	key := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().Str("cache_key", key).Msg("cache hit for routes")
		return cached.response, nil
	}
	s.mu.RUnlock()

	return s.fetchRoutes(ctx, req, key)
}

func (s *Service) fetchRoutes(ctx context.Context, req RoutesRequest, key string) (*RoutesResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after taking the write lock.
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		return cached.response, nil
	}

	resp, err := s.provider.GetRoutes(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("start_lat", req.Start.Lat).
			Float64("start_lon", req.Start.Lon).
			Float64("end_lat", req.End.Lat).
			Float64("end_lon", req.End.Lon).
			Msg("failed to fetch routes")

		if cached, ok := s.cache[key]; ok {
			if time.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Str("cache_key", key).
					Msg("serving stale route data due to provider error")
				return cached.response, nil
			}
		}

		return nil, err
	}

	now := time.Now()
	s.cache[key] = &cachedRoutes{
		response:  resp,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.logger.Debug().
		Str("cache_key", key).
		Int("candidate_count", len(resp.Candidates)).
		Msg("cached routes response")

	return resp, nil
}

// cacheKey quantizes both endpoints onto the cache grid.
func (s *Service) cacheKey(req RoutesRequest) string {
	grid := func(v float64) float64 {
		return math.Floor(v/s.cacheGridSize) * s.cacheGridSize
	}
	return fmt.Sprintf("%.3f,%.3f:%.3f,%.3f:alt=%t",
		grid(req.Start.Lat), grid(req.Start.Lon),
		grid(req.End.Lat), grid(req.End.Lon),
		req.Alternatives,
	)
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}
