package resilience

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a snapshot of one upstream.
type ProviderHealth struct {
	Name         string
	CircuitState gobreaker.State
	Counts       gobreaker.Counts

	// StateSince is when the breaker last changed state. Nil while it has
	// stayed closed since start.
	StateSince *time.Time

	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

func (h ProviderHealth) IsHealthy() bool   { return h.CircuitState == gobreaker.StateClosed }
func (h ProviderHealth) IsDegraded() bool  { return h.CircuitState == gobreaker.StateHalfOpen }
func (h ProviderHealth) IsUnhealthy() bool { return h.CircuitState == gobreaker.StateOpen }

// Registry collects the clients of one process so the ops endpoints can
// report on them. Clients register themselves through ClientConfig.Registry.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*provider
}

type provider struct {
	client      *Client
	lastSuccess *time.Time
	lastFailure *time.Time
	lastError   string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*provider)}
}

// register adds c, replacing any client registered under the same name.
func (r *Registry) register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[c.Name()] = &provider{client: c}
}

func (r *Registry) update(name string, fn func(p *provider, now time.Time)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		fn(p, time.Now())
	}
}

func (r *Registry) recordSuccess(name string) {
	r.update(name, func(p *provider, now time.Time) { p.lastSuccess = &now })
}

func (r *Registry) recordFailure(name string, err error) {
	r.update(name, func(p *provider, now time.Time) {
		p.lastFailure = &now
		p.lastError = err.Error()
	})
}

// Health returns the snapshot for name.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return p.snapshot(name), true
}

// Providers returns every registered upstream, sorted by name.
func (r *Registry) Providers() []ProviderHealth {
	r.mu.RLock()
	all := make([]ProviderHealth, 0, len(r.providers))
	for name, p := range r.providers {
		all = append(all, p.snapshot(name))
	}
	r.mu.RUnlock()

	slices.SortFunc(all, func(a, b ProviderHealth) int { return strings.Compare(a.Name, b.Name) })
	return all
}

// Healthy reports whether no breaker is open.
func (r *Registry) Healthy() bool {
	for _, h := range r.Providers() {
		if h.IsUnhealthy() {
			return false
		}
	}
	return true
}

func (p *provider) snapshot(name string) ProviderHealth {
	return ProviderHealth{
		Name:          name,
		CircuitState:  p.client.breaker.State(),
		Counts:        p.client.breaker.Counts(),
		StateSince:    p.client.stateSince.Load(),
		LastSuccessAt: p.lastSuccess,
		LastFailureAt: p.lastFailure,
		LastError:     p.lastError,
	}
}
