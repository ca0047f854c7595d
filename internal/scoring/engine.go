package scoring

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/conditions"
	"github.com/ecodrive/ecodrive/internal/routing"
)

// EngineConfig holds configuration for the scoring engine.
type EngineConfig struct {
	// Sampler supplies AQI readings for route midpoints.
	Sampler AQISampler

	// Logger for engine operations.
	Logger zerolog.Logger

	// DefaultAQI is used when a midpoint sample fails (default: 50).
	DefaultAQI int
}

// Engine scores route candidate sets.
type Engine struct {
	sampler    AQISampler
	logger     zerolog.Logger
	defaultAQI int
}

// NewEngine creates a new scoring engine.
func NewEngine(cfg EngineConfig) *Engine {
	defaultAQI := cfg.DefaultAQI
	if defaultAQI == 0 {
		defaultAQI = conditions.DefaultAQI
	}

	return &Engine{
		sampler:    cfg.Sampler,
		logger:     cfg.Logger,
		defaultAQI: defaultAQI,
	}
}

// Score transforms 1..N candidates into a fully comparable scored set.
// Candidate order is preserved; ids run 0..N-1 with 0 the canonical route.
// Per-candidate sampling failures degrade to the default AQI and never
// abort the set.
func (e *Engine) Score(ctx context.Context, candidates []routing.Candidate) ([]ScoredRoute, error) {
	if len(candidates) == 0 {
		return nil, routing.ErrNoRouteFound
	}

	expanded, synthesized := ChooseAlternatives(candidates).Expand(candidates)

	scored := make([]ScoredRoute, len(expanded))
	var wg sync.WaitGroup

	for i := range expanded {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			candidate := expanded[i]
			aqi, err := e.sampler.SampleAQI(ctx, Midpoint(candidate))
			if err != nil {
				e.logger.Warn().Err(err).
					Int("route_id", candidate.ID).
					Int("default_aqi", e.defaultAQI).
					Msg("midpoint AQI sample failed, using default")
				aqi = e.defaultAQI
			}

			scored[i] = ScoredRoute{Candidate: candidate, MidpointAQI: aqi}
		}(i)
	}

	// Normalization needs the whole set, so wait for every sample.
	wg.Wait()

	if synthesized {
		applyGreenerDirtierBias(scored)
	}

	for i := range scored {
		scored[i].PollutionScore = (scored[i].DistanceMeters / 1000) * float64(scored[i].MidpointAQI)
	}

	Normalize(scored)

	e.logger.Debug().
		Int("candidate_count", len(scored)).
		Bool("synthesized", synthesized).
		Msg("scored route set")

	return scored, nil
}

// applyGreenerDirtierBias differentiates synthesized alternatives that would
// otherwise sample near-identical AQI: the first variant reads greener, the
// second dirtier. This is a presentation heuristic for fabricated sets only;
// genuine multi-route responses are never adjusted.
func applyGreenerDirtierBias(scored []ScoredRoute) {
	for i := range scored {
		switch scored[i].ID {
		case 1:
			adjusted := scored[i].MidpointAQI - 40
			if adjusted < 30 {
				adjusted = 30
			}
			scored[i].MidpointAQI = adjusted
		case 2:
			scored[i].MidpointAQI += 50
		}
	}
}

// Normalize computes TimeSavedPct and HealthSavedPct relative to the worst
// candidate in the set. It is a pure function of the set's durations and
// pollution scores: re-running it yields identical percentages. A zero
// maximum (degenerate set) yields 0 for that metric rather than an error.
func Normalize(scored []ScoredRoute) {
	var maxDuration, maxPollution float64
	for i := range scored {
		if scored[i].DurationSeconds > maxDuration {
			maxDuration = scored[i].DurationSeconds
		}
		if scored[i].PollutionScore > maxPollution {
			maxPollution = scored[i].PollutionScore
		}
	}

	for i := range scored {
		scored[i].TimeSavedPct = savedPct(maxDuration, scored[i].DurationSeconds)
		scored[i].HealthSavedPct = savedPct(maxPollution, scored[i].PollutionScore)
	}
}

func savedPct(max, value float64) float64 {
	if max <= 0 {
		return 0
	}
	pct := (max - value) / max * 100
	if pct < 0 {
		return 0
	}
	return pct
}
