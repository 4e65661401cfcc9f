package handler

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/api/middleware"
	"github.com/fangstlog/fangstlog/internal/api/response"
	"github.com/fangstlog/fangstlog/internal/dmi"
	"github.com/fangstlog/fangstlog/internal/provider/resilience"
)

var collectionPattern = regexp.MustCompile(`^[A-Za-z]{1,40}$`)

// DMIProxyConfig holds configuration for the DMI proxy.
type DMIProxyConfig struct {
	// BaseURL of the DMI gateway. Defaults to dmi.DefaultBaseURL.
	BaseURL string

	// APIKey is added to every upstream request. Clients never see it.
	APIKey string

	// HTTPClient is optional; a "dmi-proxy" resilient client is created when nil.
	HTTPClient *resilience.Client

	// Registry receives the created HTTP client. Optional.
	Registry *resilience.Registry

	// Metrics records upstream calls. Optional.
	Metrics *middleware.UpstreamMetrics

	Logger zerolog.Logger
}

// DMIProxyHandler forwards observation queries to DMI so the API key stays
// on the server.
type DMIProxyHandler struct {
	baseURL string
	apiKey  string
	http    *resilience.Client
	metrics *middleware.UpstreamMetrics
	logger  zerolog.Logger
	allowed map[string]bool
}

// NewDMIProxyHandler creates a new DMIProxyHandler.
func NewDMIProxyHandler(cfg DMIProxyConfig) *DMIProxyHandler {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = dmi.DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig("dmi-proxy")
		rc.Registry = cfg.Registry
		httpClient = resilience.NewClient(rc)
	}

	return &DMIProxyHandler{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		http:    httpClient,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		allowed: map[string]bool{
			dmi.ClimateAPI.Name: true,
			dmi.OceanAPI.Name:   true,
			dmi.MetObsAPI.Name:  true,
		},
	}
}

// Proxy handles GET /v1/dmi/{api}/collections/{collection}/items.
// Upstream status and content type are passed through unchanged.
func (h *DMIProxyHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	api := chi.URLParam(r, "api")
	collection := chi.URLParam(r, "collection")

	if !h.allowed[api] {
		response.NotFound(w, r, "unknown DMI API")
		return
	}
	if !collectionPattern.MatchString(collection) {
		response.BadRequest(w, r, "invalid collection", nil)
		return
	}

	query := url.Values{}
	for key, values := range r.URL.Query() {
		if strings.EqualFold(key, "api-key") {
			continue
		}
		query[key] = values
	}
	if h.apiKey != "" {
		query.Set("api-key", h.apiKey)
	}

	target := h.baseURL + "/" + api + "/collections/" + collection + "/items?" + query.Encode()
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, http.NoBody)
	if err != nil {
		response.InternalError(w, r, "failed to build upstream request")
		return
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.http.DoWithContext(r.Context(), req)
	if err != nil {
		h.metrics.RecordRequest("dmi", api, 0, time.Since(start))
		h.logger.Warn().Err(err).Str("api", api).Str("collection", collection).Msg("DMI proxy request failed")
		response.BadGateway(w, r, "DMI request failed")
		return
	}
	defer resp.Body.Close()
	h.metrics.RecordRequest("dmi", api, resp.StatusCode, time.Since(start))

	for _, name := range []string{"Content-Type", "Cache-Control", "Last-Modified"} {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Debug().Err(err).Str("api", api).Msg("copying DMI response interrupted")
	}
}
