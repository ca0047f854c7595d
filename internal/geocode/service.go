package geocode

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	// Provider is the geocoding provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache resolved queries (default: 30 minutes).
	// A long TTL keeps trip-session restore resolving the same text to the
	// same coordinate within a session.
	CacheTTL time.Duration

	// CleanupInterval is how often to clean up expired entries (default: 10 minutes).
	CleanupInterval time.Duration
}

// Service provides geocoding with a query-keyed cache.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cleanupInterval time.Duration

	mu          sync.RWMutex
	cache       map[string]*cachedCoordinate
	lastCleanup time.Time
}

type cachedCoordinate struct {
	coord     geo.Coordinate
	expiresAt time.Time
}

// NewService creates a new geocoding service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 30 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 10 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cacheTTL,
		cleanupInterval: cleanupInterval,
		cache:           make(map[string]*cachedCoordinate),
	}
}

// Resolve geocodes a free-text query, serving repeated queries from cache.
func (s *Service) Resolve(ctx context.Context, query string) (geo.Coordinate, error) {
	key := cacheKey(query)

	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && time.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.logger.Debug().Str("query", query).Msg("geocode cache hit")
		return cached.coord, nil
	}
	s.mu.RUnlock()

	coord, err := s.provider.Search(ctx, query)
	if err != nil {
		return geo.Coordinate{}, err
	}

	s.mu.Lock()
	s.cache[key] = &cachedCoordinate{
		coord:     coord,
		expiresAt: time.Now().Add(s.cacheTTL),
	}
	s.cleanupIfNeeded()
	s.mu.Unlock()

	return coord, nil
}

// Nearby delegates a bounded category search to the provider. Results are
// viewport-scoped and short-lived, so they are not cached.
func (s *Service) Nearby(ctx context.Context, category string, viewbox geo.BoundingBox, limit int) ([]Place, error) {
	return s.provider.Nearby(ctx, category, viewbox, limit)
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// cleanupIfNeeded removes expired entries. Caller must hold the write lock.
func (s *Service) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.expiresAt) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired geocode cache entries")
	}
}

func cacheKey(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
