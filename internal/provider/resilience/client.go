package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without calling the upstream while its breaker
// is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig configures a Client. Zero durations take defaults.
type ClientConfig struct {
	// Name identifies the upstream in the registry, e.g. "dmi-climate".
	Name string

	// Timeout bounds each attempt.
	Timeout time.Duration

	// MaxRetries after the first attempt. Zero sends each request once,
	// which callers with their own retry loop, like the offline queue, want.
	MaxRetries uint64

	InitialInterval time.Duration
	MaxInterval     time.Duration

	// UserAgent is set on requests that carry none.
	UserAgent string

	Breaker BreakerConfig

	// Registry, when set, gets the client and its outcomes.
	Registry *Registry
}

// DefaultClientConfig suits a read-only upstream such as DMI.
func DefaultClientConfig(name string) ClientConfig {
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		UserAgent:       "fangstlog/1.0",
	}
}

// Client sends requests to one upstream through retries and a breaker.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     ClientConfig
	stateSince atomic.Pointer[time.Time]
}

// NewClient creates a Client and registers it when cfg.Registry is set.
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

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}
	// The callback runs under the breaker's lock, so it only touches c.
	c.breaker = newBreaker(cfg.Name, cfg.Breaker, func(gobreaker.State) {
		now := time.Now()
		c.stateSince.Store(&now)
	})

	if cfg.Registry != nil {
		cfg.Registry.register(c)
	}
	return c
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.config.Name
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Do sends req under its own context.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.DoWithContext(req.Context(), req)
}

// DoWithContext sends req, retrying network errors and 5xx answers with
// exponential backoff. 4xx answers are returned at once. When retries run
// out on a 5xx, that response is returned with a nil error so callers can
// read it. An open breaker fails fast with ErrCircuitOpen.
//
// A request with a body is only retried if it is replayable; http.NewRequest
// sets GetBody for in-memory readers.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var lastResp *http.Response

	operation := func() error {
		attempt, err := c.prepare(ctx, req)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller is responsible for closing
			r, err := c.httpClient.Do(attempt)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= 500 {
				return r, &StatusError{StatusCode: r.StatusCode}
			}
			return r, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				discard(lastResp)
				lastResp = resp
			}
			return err
		}

		discard(lastResp)
		lastResp = resp
		return nil
	}

	err := backoff.Retry(operation, policy)
	if err != nil {
		c.recordFailure(err)
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}

	c.recordSuccess()
	return lastResp, nil
}

// prepare clones req for one attempt, rewinding the body when possible.
func (c *Client) prepare(ctx context.Context, req *http.Request) (*http.Request, error) {
	attempt := req.Clone(ctx)
	if req.Body != nil && req.Body != http.NoBody {
		if req.GetBody == nil {
			if c.config.MaxRetries > 0 {
				return nil, fmt.Errorf("request body is not replayable")
			}
		} else {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attempt.Body = body
		}
	}
	if c.config.UserAgent != "" && attempt.Header.Get("User-Agent") == "" {
		attempt.Header.Set("User-Agent", c.config.UserAgent)
	}
	return attempt, nil
}

func (c *Client) recordSuccess() {
	if c.config.Registry != nil {
		c.config.Registry.recordSuccess(c.config.Name)
	}
}

func (c *Client) recordFailure(err error) {
	if c.config.Registry != nil {
		c.config.Registry.recordFailure(c.config.Name, err)
	}
}

func discard(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// StatusError is a 5xx answer. It counts against the breaker and is retried.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
