package conditions

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/geo"
)

// ServiceConfig holds configuration for the conditions service.
type ServiceConfig struct {
	// Weather supplies temperature readings (optional).
	Weather WeatherProvider

	// AQI supplies air quality readings (optional).
	AQI AQIProvider

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service fetches weather and air quality, degrading per sub-value.
type Service struct {
	weather WeatherProvider
	aqi     AQIProvider
	logger  zerolog.Logger
}

// NewService creates a new conditions service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		weather: cfg.Weather,
		aqi:     cfg.AQI,
		logger:  cfg.Logger,
	}
}

// Current returns a conditions report for the coordinate. The temperature
// and AQI calls run concurrently and fail independently; a failed call
// leaves its field nil and is logged, never propagated.
func (s *Service) Current(ctx context.Context, c geo.Coordinate) Report {
	report := Report{FetchedAt: time.Now()}

	var wg sync.WaitGroup

	if s.weather != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			temp, err := s.weather.CurrentTemperature(ctx, c)
			if err != nil {
				s.logger.Warn().Err(err).
					Str("provider", s.weather.Name()).
					Msg("temperature unavailable")
				return
			}
			report.TemperatureC = &temp
		}()
	}

	if s.aqi != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			aqi, err := s.aqi.CurrentAQI(ctx, c)
			if err != nil {
				s.logger.Warn().Err(err).
					Str("provider", s.aqi.Name()).
					Msg("AQI unavailable")
				return
			}
			report.AQI = &aqi
		}()
	}

	wg.Wait()
	return report
}

// SampleAQI returns the AQI at a coordinate, for route midpoint scoring.
// Unlike Current, the error is returned so the scorer can apply its
// default.
func (s *Service) SampleAQI(ctx context.Context, c geo.Coordinate) (int, error) {
	if s.aqi == nil {
		return 0, ErrUnavailable
	}
	return s.aqi.CurrentAQI(ctx, c)
}
