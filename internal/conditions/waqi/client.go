// Package waqi provides a client for the World Air Quality Index feed API.
package waqi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecodrive/ecodrive/internal/conditions"
	"github.com/ecodrive/ecodrive/internal/geo"
	"github.com/ecodrive/ecodrive/internal/provider/resilience"
)

const (
	// ProviderName identifies this AQI provider.
	ProviderName = "waqi"

	// DefaultBaseURL is the WAQI API base URL.
	DefaultBaseURL = "https://api.waqi.info"
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the WAQI client.
type ClientConfig struct {
	// Token is the WAQI access token (required).
	Token string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a WAQI API client.
type Client struct {
	token      string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new WAQI client.
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
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type feedResponse struct {
	Status string `json:"status"`
	Data   struct {
		AQI json.Number `json:"aqi"`
	} `json:"data"`
}

// CurrentAQI fetches the AQI at the nearest station to the coordinate.
// The feed's status field gates whether the aqi value is trustworthy;
// anything other than "ok" is treated as unavailable.
func (c *Client) CurrentAQI(ctx context.Context, coord geo.Coordinate) (int, error) {
	if c.token == "" {
		return 0, fmt.Errorf("%w: no WAQI token configured", conditions.ErrUnavailable)
	}

	reqURL := fmt.Sprintf("%s/feed/geo:%.6f;%.6f/?token=%s",
		c.baseURL, coord.Lat, coord.Lon, url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", conditions.ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", conditions.ErrUnavailable, resp.StatusCode)
	}

	var payload feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding response: %w", err)
	}

	if payload.Status != "ok" {
		return 0, fmt.Errorf("%w: feed status %q", conditions.ErrUnavailable, payload.Status)
	}

	// Stations occasionally report "-" for a missing sample.
	aqi, err := payload.Data.AQI.Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric aqi %q", conditions.ErrUnavailable, payload.Data.AQI.String())
	}

	c.logger.Debug().
		Float64("lat", coord.Lat).
		Float64("lon", coord.Lon).
		Int64("aqi", aqi).
		Msg("fetched AQI")

	return int(aqi), nil
}
