// Package tripclient talks to the remote trip store over HTTP.
package tripclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/api/models"
	"github.com/fangstlog/fangstlog/internal/provider/resilience"
	"github.com/fangstlog/fangstlog/internal/trip"
)

// ErrUnauthorized is returned when the access token is missing or rejected.
var ErrUnauthorized = errors.New("trip store rejected the access token")

// TokenSource returns the bearer token for a request.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// StatusError is a non-success response from the trip store.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("trip store returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("trip store returned status %d: %s", e.StatusCode, e.Detail)
}

// Config holds configuration for the client.
type Config struct {
	// BaseURL of the API, e.g. https://api.fangstlog.dk.
	BaseURL string

	Token TokenSource

	// HTTPClient is optional; a "trip-api" resilient client is created when nil.
	HTTPClient *resilience.Client

	// Registry receives the created HTTP client. Optional.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Client is the remote trip store client.
type Client struct {
	baseURL string
	token   TokenSource
	http    *resilience.Client
	logger  zerolog.Logger
}

// New creates a trip store client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig("trip-api")
		// Writes are not idempotent; leave retries to the offline queue.
		rc.MaxRetries = 0
		rc.Registry = cfg.Registry
		httpClient = resilience.NewClient(rc)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    httpClient,
		logger:  cfg.Logger,
	}
}

// SaveTrip creates the trip in the remote store.
func (c *Client) SaveTrip(ctx context.Context, p trip.SaveTripPayload) error {
	_, err := c.CreateTrip(ctx, p)
	return err
}

// CreateTrip posts the payload and returns the stored trip.
func (c *Client) CreateTrip(ctx context.Context, p trip.SaveTripPayload) (*models.Trip, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding trip: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/v1/me/trips", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var created models.Trip
	if err := c.do(ctx, req, http.StatusCreated, &created); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("trip_id", created.ID).Msg("trip created remotely")
	return &created, nil
}

// ListTrips returns a page of the user's trips.
func (c *Client) ListTrips(ctx context.Context, cursor string) (*models.TripList, error) {
	path := "/v1/me/trips"
	if cursor != "" {
		path += "?cursor=" + url.QueryEscape(cursor)
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list models.TripList
	if err := c.do(ctx, req, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != nil {
		token, err := c.token(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting access token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, want int, out any) error {
	resp, err := c.http.DoWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != want {
		return decodeProblem(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeProblem(resp *http.Response) error {
	statusErr := &StatusError{StatusCode: resp.StatusCode}

	var problem models.Problem
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&problem); err == nil {
		statusErr.Detail = problem.Detail
		if statusErr.Detail == "" {
			statusErr.Detail = problem.Title
		}
	}
	return statusErr
}
