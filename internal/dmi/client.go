package dmi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the DMI open data gateway.
	DefaultBaseURL = "https://dmigw.govcloud.dk/v2"

	// DefaultLimit caps the number of features per request.
	DefaultLimit = 1000
)

// API describes one DMI collection endpoint.
type API struct {
	// Name is the API path segment, e.g. "climateData".
	Name string

	// Collection is the collection path segment.
	Collection string

	// TimeField is the feature property carrying the sample time.
	TimeField string

	// TimeResolution is sent as timeResolution when set.
	TimeResolution string
}

// DMI APIs used for trip evaluations.
var (
	ClimateAPI = API{Name: "climateData", Collection: "stationValue", TimeField: "from", TimeResolution: "hour"}
	OceanAPI   = API{Name: "oceanObs", Collection: "observation", TimeField: "observed"}
	MetObsAPI  = API{Name: "metObs", Collection: "observation", TimeField: "observed"}
)

// Path returns the items path relative to the base URL.
func (a API) Path() string {
	return "/" + a.Name + "/collections/" + a.Collection + "/items"
}

// Fetcher retrieves a parameter serie for one station.
//
// A failed fetch returns an empty serie together with the error so callers
// can tell "no observations" from "request failed".
type Fetcher interface {
	Climate(ctx context.Context, stationID, parameterID string, w Window) (Serie, error)
	Ocean(ctx context.Context, stationID, parameterID string, w Window) (Serie, error)
	MetObs(ctx context.Context, stationID, parameterID string, w Window) (Serie, error)
}

// ClientConfig holds configuration for the DMI client.
type ClientConfig struct {
	// BaseURL is the API root. Point it at the fangstlog proxy to keep the
	// API key off devices. Defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is sent as the api-key query parameter when set.
	APIKey string

	// Limit is the page size per request (default DefaultLimit).
	Limit int

	// ClimateHTTP, OceanHTTP and MetObsHTTP are the per-API resilient
	// clients. Missing clients are created with defaults.
	ClimateHTTP *resilience.Client
	OceanHTTP   *resilience.Client
	MetObsHTTP  *resilience.Client

	// Registry receives default-created clients. Optional.
	Registry *resilience.Registry

	Logger zerolog.Logger
}

// Client fetches observation series from the DMI climate, ocean and metObs APIs.
type Client struct {
	baseURL string
	apiKey  string
	limit   int
	climate *resilience.Client
	ocean   *resilience.Client
	metObs  *resilience.Client
	logger  zerolog.Logger
}

// NewClient creates a new DMI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		limit:   limit,
		climate: orDefault(cfg.ClimateHTTP, "dmi-climate", cfg.Registry),
		ocean:   orDefault(cfg.OceanHTTP, "dmi-ocean", cfg.Registry),
		metObs:  orDefault(cfg.MetObsHTTP, "dmi-metobs", cfg.Registry),
		logger:  cfg.Logger,
	}
}

func orDefault(c *resilience.Client, name string, registry *resilience.Registry) *resilience.Client {
	if c != nil {
		return c
	}
	cfg := resilience.DefaultClientConfig(name)
	cfg.Registry = registry
	return resilience.NewClient(cfg)
}

// Climate fetches hourly station values from climateData.
func (c *Client) Climate(ctx context.Context, stationID, parameterID string, w Window) (Serie, error) {
	return c.fetch(ctx, c.climate, ClimateAPI, stationID, parameterID, w)
}

// Ocean fetches oceanObs observations.
func (c *Client) Ocean(ctx context.Context, stationID, parameterID string, w Window) (Serie, error) {
	return c.fetch(ctx, c.ocean, OceanAPI, stationID, parameterID, w)
}

// MetObs fetches 10-minute metObs observations.
func (c *Client) MetObs(ctx context.Context, stationID, parameterID string, w Window) (Serie, error) {
	return c.fetch(ctx, c.metObs, MetObsAPI, stationID, parameterID, w)
}

// Query builds the query string for a request.
func (c *Client) Query(api API, stationID, parameterID string, w Window) url.Values {
	q := url.Values{}
	q.Set("stationId", stationID)
	q.Set("parameterId", parameterID)
	q.Set("datetime", w.Datetime())
	if api.TimeResolution != "" {
		q.Set("timeResolution", api.TimeResolution)
	}
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("sortorder", api.TimeField+",ASC")
	if c.apiKey != "" {
		q.Set("api-key", c.apiKey)
	}
	return q
}

func (c *Client) fetch(ctx context.Context, httpClient *resilience.Client, api API, stationID, parameterID string, w Window) (Serie, error) {
	u := c.baseURL + api.Path() + "?" + c.Query(api, stationID, parameterID, w).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return Serie{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Serie{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Serie{}, fmt.Errorf("%w: %s %s returned %d", ErrUpstream, api.Name, parameterID, resp.StatusCode)
	}

	serie, err := decodeFeatures(resp.Body, api.TimeField)
	if err != nil {
		return Serie{}, fmt.Errorf("decoding response: %w", err)
	}

	c.logger.Debug().
		Str("api", api.Name).
		Str("station_id", stationID).
		Str("parameter_id", parameterID).
		Int("samples", len(serie)).
		Msg("fetched dmi serie")

	return serie, nil
}

type featureCollection struct {
	Features []struct {
		Properties featureProperties `json:"properties"`
	} `json:"features"`
}

type featureProperties struct {
	Value       *float64 `json:"value"`
	From        string   `json:"from"`
	Observed    string   `json:"observed"`
	ParameterID string   `json:"parameterId"`
	StationID   string   `json:"stationId"`
}

func (p featureProperties) timestamp(field string) string {
	switch {
	case field == "from" && p.From != "":
		return p.From
	case field == "observed" && p.Observed != "":
		return p.Observed
	case p.From != "":
		return p.From
	default:
		return p.Observed
	}
}

// decodeFeatures parses a DMI feature collection into a time-ascending serie.
// Features without a value or with an unreadable timestamp are skipped.
func decodeFeatures(r io.Reader, timeField string) (Serie, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return Serie{}, err
	}

	serie := make(Serie, 0, len(fc.Features))
	for _, f := range fc.Features {
		p := f.Properties
		if p.Value == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339Nano, p.timestamp(timeField))
		if err != nil {
			continue
		}
		serie = append(serie, Sample{TS: ts.UnixMilli(), V: *p.Value})
	}

	serie.Sort()
	return serie, nil
}
