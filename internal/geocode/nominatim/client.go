// Package nominatim provides a client for the OSM Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/geocode"
	"github.com/ecodrive/ecodrive/internal/provider/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "nominatim"

	// DefaultBaseURL is the public Nominatim endpoint.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// defaultUserAgent identifies the app per the Nominatim usage policy.
	defaultUserAgent = "ecodrive-planner/1.0"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the Nominatim client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional, defaults to the public API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional).
	Timeout time.Duration

	// UserAgent overrides the default User-Agent header (optional).
	UserAgent string

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Nominatim API client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new Nominatim client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
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
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// result is a single Nominatim search result. Lat/lon arrive as strings.
type result struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search resolves a free-text query to its first-result coordinate.
func (c *Client) Search(ctx context.Context, query string) (geo.Coordinate, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", "1")

	results, err := c.search(ctx, params)
	if err != nil {
		c.logger.Warn().Err(err).Str("query", query).Msg("geocode request failed")
		return geo.Coordinate{}, fmt.Errorf("%w: %s", geocode.ErrNotFound, query)
	}
	if len(results) == 0 {
		return geo.Coordinate{}, fmt.Errorf("%w: %s", geocode.ErrNotFound, query)
	}

	coord, err := results[0].coordinate()
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: %s", geocode.ErrNotFound, query)
	}

	c.logger.Debug().
		Str("query", query).
		Float64("lat", coord.Lat).
		Float64("lon", coord.Lon).
		Msg("geocoded query")

	return coord, nil
}

// Nearby finds places matching a category inside the viewbox, capped at
// limit results. The bounded flag restricts results to the visible extent.
func (c *Client) Nearby(ctx context.Context, category string, viewbox geo.BoundingBox, limit int) ([]geocode.Place, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", category)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("viewbox", viewbox.Viewbox())
	params.Set("bounded", "1")

	results, err := c.search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", geocode.ErrProviderUnavailable, err.Error())
	}

	places := make([]geocode.Place, 0, len(results))
	for _, r := range results {
		coord, err := r.coordinate()
		if err != nil {
			continue
		}
		places = append(places, geocode.Place{
			Coordinate: coord,
			Label:      r.DisplayName,
		})
	}

	c.logger.Debug().
		Str("category", category).
		Int("count", len(places)).
		Msg("nearby search completed")

	return places, nil
}

func (c *Client) search(ctx context.Context, params url.Values) ([]result, error) {
	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var results []result
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return results, nil
}

func (r result) coordinate() (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("parsing lat: %w", err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("parsing lon: %w", err)
	}

	coord := geo.Coordinate{Lat: lat, Lon: lon}
	if err := coord.Validate(); err != nil {
		return geo.Coordinate{}, err
	}
	return coord, nil
}
