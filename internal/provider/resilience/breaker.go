// Package resilience wraps calls to upstreams such as DMI and the trip API
// in retries and a circuit breaker, and tracks their health for the ops
// endpoints.
package resilience

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker around one upstream. Zero fields
// take the defaults below.
type BreakerConfig struct {
	// MinRequests must be seen before FailureRatio is considered.
	MinRequests uint32
	// FailureRatio of failed calls opens the breaker.
	FailureRatio float64
	// OpenFor is how long an open breaker rejects calls before probing.
	OpenFor time.Duration
	// Probes is how many calls a half-open breaker lets through.
	Probes uint32
	// Window clears the counts periodically while closed. Zero never clears
	// them, so a breaker only trips on a sustained failure ratio.
	Window time.Duration
}

const (
	defaultMinRequests  = 5
	defaultFailureRatio = 0.5
	defaultOpenFor      = time.Minute
	defaultProbes       = 1
)

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.MinRequests == 0 {
		c.MinRequests = defaultMinRequests
	}
	if c.FailureRatio <= 0 {
		c.FailureRatio = defaultFailureRatio
	}
	if c.OpenFor <= 0 {
		c.OpenFor = defaultOpenFor
	}
	if c.Probes == 0 {
		c.Probes = defaultProbes
	}
	return c
}

// ShouldTrip reports whether counts open a breaker configured by c.
func (c BreakerConfig) ShouldTrip(counts gobreaker.Counts) bool {
	c = c.withDefaults()
	if counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

func newBreaker(name string, cfg BreakerConfig, onChange func(to gobreaker.State)) *gobreaker.CircuitBreaker[*http.Response] {
	cfg = cfg.withDefaults()
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.Probes,
		Interval:    cfg.Window,
		Timeout:     cfg.OpenFor,
		ReadyToTrip: cfg.ShouldTrip,
		OnStateChange: func(_ string, _, to gobreaker.State) {
			onChange(to)
		},
	})
}
