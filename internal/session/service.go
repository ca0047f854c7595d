package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// ServiceConfig holds configuration for the session service.
type ServiceConfig struct {
	// Repository is the trip snapshot store.
	Repository Repository

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service owns the active/inactive trip lifecycle around the repository.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new session service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}
}

// SaveActiveTrip snapshots a trip after successful route acquisition,
// overwriting any prior snapshot. Called once per acquisition, not per
// route selection.
func (s *Service) SaveActiveTrip(ctx context.Context, country, sourceText, destText string, start, end geo.Coordinate) (*Trip, error) {
	trip := &Trip{
		ID:         uuid.New().String(),
		Country:    country,
		SourceText: sourceText,
		DestText:   destText,
		Start:      start,
		End:        end,
		SavedAt:    time.Now(),
	}

	if err := s.repo.Save(ctx, trip); err != nil {
		s.logger.Error().Err(err).Msg("failed to save trip snapshot")
		return nil, err
	}

	s.logger.Info().
		Str("trip_id", trip.ID).
		Str("country", country).
		Msg("active trip saved")

	return trip, nil
}

// LoadActiveTrip returns the stored snapshot, or ErrNoActiveTrip.
func (s *Service) LoadActiveTrip(ctx context.Context) (*Trip, error) {
	return s.repo.Load(ctx)
}

// ClearActiveTrip removes the snapshot on trip end or reset.
func (s *Service) ClearActiveTrip(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to clear trip snapshot")
		return err
	}

	s.logger.Info().Msg("active trip cleared")
	return nil
}
