package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/fangstlog/fangstlog/internal/api/models"
)

// RateLimitConfig is a sliding-window request budget.
type RateLimitConfig struct {
	RequestLimit int
	WindowLength time.Duration
}

var (
	// AuthRateLimit guards token issuing per client IP.
	AuthRateLimit = RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}

	// ProxyRateLimit guards the DMI proxy per client IP. Every call spends
	// the server's DMI quota.
	ProxyRateLimit = RateLimitConfig{RequestLimit: 60, WindowLength: time.Minute}

	// StandardRateLimit applies per user to trip and spot routes. A sync
	// agent draining a long offline queue posts one trip per request, so the
	// budget is sized for a backlog of a few weeks.
	StandardRateLimit = RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}
)

// RateLimitByIP limits by client address. Run chi's RealIP first so
// forwarded addresses count.
func RateLimitByIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limit(httprate.KeyByRealIP)
}

// RateLimitByUser limits by authenticated user, falling back to the client
// address on requests that carry none.
func RateLimitByUser(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return cfg.limit(func(r *http.Request) (string, error) {
		if userID := GetUserID(r.Context()); userID != "" {
			return "user:" + userID, nil
		}
		return httprate.KeyByRealIP(r)
	})
}

func (cfg RateLimitConfig) limit(key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowLength,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(cfg.exceeded),
	)
}

// RetryAfter is the Retry-After value in whole seconds, never below one.
func (cfg RateLimitConfig) RetryAfter() int {
	return max(1, int(math.Ceil(cfg.WindowLength.Seconds())))
}

func (cfg RateLimitConfig) exceeded(w http.ResponseWriter, r *http.Request) {
	problem := models.NewProblem(http.StatusTooManyRequests, GetRequestID(r.Context()),
		"Rate limit exceeded. Please try again later.")
	problem.Instance = r.URL.Path

	w.Header().Set("Retry-After", strconv.Itoa(cfg.RetryAfter()))
	problem.Write(w)
}
