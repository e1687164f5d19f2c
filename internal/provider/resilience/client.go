package resilience

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrMaxRetriesExceeded is returned when every attempt failed without a response.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies the provider.
	Name string

	// Timeout bounds each attempt. Default: 10 seconds
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Default: 3
	MaxRetries uint64

	// InitialInterval is the first backoff delay. Default: 100ms
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay. Default: 5 seconds
	MaxInterval time.Duration

	// RetryRateLimited retries 429 responses as well as 5xx.
	RetryRateLimited bool

	// CircuitBreaker overrides the breaker settings.
	CircuitBreaker *CircuitBreakerConfig

	// Registry receives health updates when set.
	Registry *Registry

	Logger zerolog.Logger
}

// DefaultClientConfig returns default settings for name.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:             name,
		Timeout:          10 * time.Second,
		MaxRetries:       3,
		InitialInterval:  100 * time.Millisecond,
		MaxInterval:      5 * time.Second,
		RetryRateLimited: true,
		CircuitBreaker:   &cb,
	}
}

// Client executes HTTP requests through a circuit breaker with exponential backoff.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
	registry   *Registry
	logger     zerolog.Logger
}

// NewClient creates a resilient HTTP client and registers it when a registry is configured.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	cbCfg := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cbCfg = *cfg.CircuitBreaker
	}
	if cbCfg.OnStateChange == nil {
		cbCfg.OnStateChange = LogStateChange(cfg.Logger)
	}

	c := &Client{
		name:       cfg.Name,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    NewCircuitBreaker[*http.Response](cbCfg), //nolint:bodyclose // type param, not response
		config:     cfg,
		registry:   cfg.Registry,
		logger:     cfg.Logger,
	}
	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// Do executes req with retries. 4xx responses other than 429 are returned as is.
// When retries run out on a retryable status the last response is returned
// without error so callers can map it.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var (
		last    *http.Response
		attempt int
	)
	operation := func() error {
		attempt++
		if last != nil {
			last.Body.Close()
			last = nil
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // closed by caller or next attempt
			r, err := c.httpClient.Do(cloneRequest(ctx, req))
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrCircuitOpen)
		case err != nil:
			last = resp
			c.logger.Debug().Err(err).Str("provider", c.name).Int("attempt", attempt).Msg("provider request failed")
			return err
		case resp.StatusCode == http.StatusTooManyRequests && c.config.RetryRateLimited:
			last = resp
			return &RateLimitError{RetryAfter: retryAfter(resp)}
		}

		last = resp
		return nil
	}

	err := backoff.Retry(operation, policy)
	if err != nil {
		c.recordFailure(err)
		if last != nil {
			return last, nil
		}
		if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.Join(ErrMaxRetriesExceeded, err)
	}

	c.recordSuccess()
	return last, nil
}

func (c *Client) recordSuccess() {
	if c.registry != nil {
		c.registry.RecordSuccess(c.name)
	}
}

func (c *Client) recordFailure(err error) {
	if c.registry != nil {
		c.registry.RecordFailure(c.name, err)
	}
}

// CircuitBreakerState returns the breaker state.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.breaker.State()
}

// CircuitBreakerCounts returns the breaker counters.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts {
	return c.breaker.Counts()
}

// ServerError represents an HTTP 5xx response.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// RateLimitError represents an HTTP 429 response.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return "rate limited, retry after " + e.RetryAfter.String()
	}
	return "rate limited"
}

// cloneRequest copies req for another attempt, rewinding the body when possible.
func cloneRequest(ctx context.Context, req *http.Request) *http.Request {
	clone := req.Clone(ctx)
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			clone.Body = body
		}
	}
	return clone
}

func retryAfter(resp *http.Response) time.Duration {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
