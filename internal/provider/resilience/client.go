// Package resilience wraps outbound provider HTTP calls with a circuit
// breaker and retry logic so a flaky upstream degrades to an error instead
// of hanging the planning flow.
package resilience

import (
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the provider's circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies the provider for breaker naming and registry lookup.
	Name string

	// Timeout is the per-request timeout. Default: 12 seconds.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts. Default: 2.
	MaxRetries uint64

	// InitialInterval is the initial retry backoff. Default: 100ms.
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff. Default: 3 seconds.
	MaxInterval time.Duration

	// BreakerTimeout is how long the breaker stays open before probing.
	// Default: 60 seconds.
	BreakerTimeout time.Duration

	// Registry receives success/failure reports (optional).
	Registry *Registry
}

// Client is an HTTP client with retry and circuit breaker protection.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	registry   *Registry
	cfg        ClientConfig
}

// DefaultClientConfig returns sensible defaults for a provider client.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         12 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     3 * time.Second,
		BreakerTimeout:  60 * time.Second,
	}
}

// NewClient creates a new resilient HTTP client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 12 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 3 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip on a 50%+ failure rate once enough traffic has been seen.
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= 0.5
		},
	})

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		registry:   cfg.Registry,
		cfg:        cfg,
	}

	if cfg.Registry != nil {
		cfg.Registry.register(cfg.Name, c)
	}

	return c
}

// serverError marks a 5xx response as a breaker-visible failure.
type serverError struct {
	statusCode int
}

func (e *serverError) Error() string {
	return "server error: " + http.StatusText(e.statusCode)
}

// Do executes the request, retrying transient failures (network errors and
// 5xx responses) with exponential backoff. The caller owns the response
// body. Requests with bodies are not retried safely here; all planner
// provider calls are GETs.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var lastResp *http.Response

	err := backoff.Retry(func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &serverError{statusCode: r.StatusCode}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				lastResp = resp
			}
			return err
		}

		lastResp = resp
		return nil
	}, policy)

	if err != nil {
		c.report(err)
		// A 5xx that exhausted retries is still a response the caller can
		// inspect.
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}

	c.report(nil)
	return lastResp, nil
}

// State returns the current circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the circuit breaker counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

func (c *Client) report(err error) {
	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.recordFailure(c.cfg.Name, err)
		return
	}
	c.registry.recordSuccess(c.cfg.Name)
}
