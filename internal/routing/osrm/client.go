// Package osrm provides a client for the OSRM driving route API.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/provider/resilience"
	"github.com/ecodrive/ecodrive/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "osrm"

	// DefaultBaseURL is the public OSRM demo server.
	DefaultBaseURL = "https://router.project-osrm.org"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OSRM client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to the demo server).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OSRM API client.
type Client struct {
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OSRM client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout != 0 {
			clientCfg.Timeout = cfg.Timeout
		}
		if cfg.Registry != nil {
			clientCfg.Registry = cfg.Registry
		}
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// osrmResponse mirrors the OSRM route service payload.
type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Geometry osrmGeometry `json:"geometry"`
	Legs     []osrmLeg    `json:"legs"`
}

type osrmGeometry struct {
	// GeoJSON LineString: [lon, lat] pairs.
	Coordinates [][]float64 `json:"coordinates"`
}

type osrmLeg struct {
	Steps []osrmStep `json:"steps"`
}

type osrmStep struct {
	Name     string       `json:"name"`
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmManeuver struct {
	Type string `json:"type"`
}

// GetRoutes retrieves candidate driving routes between two points.
func (c *Client) GetRoutes(ctx context.Context, req routing.RoutesRequest) (*routing.RoutesResponse, error) {
	if err := req.Start.Validate(); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_START",
			Message:  "invalid start coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}
	if err := req.End.Validate(); err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "INVALID_END",
			Message:  "invalid end coordinates",
			Err:      routing.ErrInvalidCoordinates,
		}
	}

	// OSRM expects "lon,lat;lon,lat".
	url := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson&steps=true&alternatives=%t",
		c.baseURL,
		req.Start.Lon, req.Start.Lat,
		req.End.Lon, req.End.Lat,
		req.Alternatives,
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug().
		Float64("start_lat", req.Start.Lat).
		Float64("start_lon", req.Start.Lon).
		Float64("end_lat", req.End.Lat).
		Float64("end_lon", req.End.Lon).
		Msg("requesting routes from OSRM")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach routing provider",
			Err:      routing.ErrProviderUnavailable,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp.StatusCode)
	}

	var osrmResp osrmResponse
	if err := json.Unmarshal(respBody, &osrmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if osrmResp.Code != "Ok" || len(osrmResp.Routes) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "no route found between the given points",
			Err:      routing.ErrNoRouteFound,
		}
	}

	result, err := c.toRoutesResponse(&osrmResp)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("candidate_count", len(result.Candidates)).
		Msg("received routes from OSRM")

	return result, nil
}

func (c *Client) handleErrorResponse(statusCode int) error {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "RATE_LIMIT",
			Message:  "API rate limit exceeded, please try again later",
			Err:      routing.ErrRateLimitExceeded,
		}
	case statusCode == http.StatusBadRequest:
		return &routing.Error{
			Provider: ProviderName,
			Code:     "BAD_REQUEST",
			Message:  "routing provider rejected the request",
			Err:      routing.ErrInvalidCoordinates,
		}
	case statusCode >= 500:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("SERVER_%d", statusCode),
			Message:  "routing provider is temporarily unavailable",
			Err:      routing.ErrProviderUnavailable,
		}
	default:
		return &routing.Error{
			Provider: ProviderName,
			Code:     fmt.Sprintf("HTTP_%d", statusCode),
			Message:  fmt.Sprintf("routing provider returned status %d", statusCode),
			Err:      routing.ErrProviderUnavailable,
		}
	}
}

func (c *Client) toRoutesResponse(resp *osrmResponse) (*routing.RoutesResponse, error) {
	candidates := make([]routing.Candidate, 0, len(resp.Routes))

	for i := range resp.Routes {
		r := &resp.Routes[i]

		geometry := make([]geo.Coordinate, 0, len(r.Geometry.Coordinates))
		for _, pair := range r.Geometry.Coordinates {
			if len(pair) < 2 {
				continue
			}
			geometry = append(geometry, geo.Coordinate{Lat: pair[1], Lon: pair[0]})
		}

		if len(geometry) < 2 {
			return nil, &routing.Error{
				Provider: ProviderName,
				Code:     "BAD_GEOMETRY",
				Message:  "route geometry has fewer than two points",
				Err:      routing.ErrNoRouteFound,
			}
		}

		candidates = append(candidates, routing.Candidate{
			ID:              i,
			Geometry:        geometry,
			DistanceMeters:  r.Distance,
			DurationSeconds: r.Duration,
			FirstManeuver:   firstManeuver(r.Legs),
		})
	}

	return &routing.RoutesResponse{
		Candidates: candidates,
		Provider:   ProviderName,
		FetchedAt:  time.Now(),
	}, nil
}

// firstManeuver builds the "type + road name" HUD text from the first step.
func firstManeuver(legs []osrmLeg) string {
	if len(legs) == 0 || len(legs[0].Steps) == 0 {
		return ""
	}

	step := legs[0].Steps[0]
	name := step.Name
	if name == "" {
		name = "ahead"
	}
	return strings.TrimSpace(step.Maneuver.Type + " " + name)
}
