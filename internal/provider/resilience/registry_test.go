package resilience_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fangstlog/fangstlog/internal/provider/resilience"
)

func registered(registry *resilience.Registry, name string, breaker resilience.BreakerConfig) *resilience.Client {
	return resilience.NewClient(resilience.ClientConfig{
		Name:     name,
		Timeout:  time.Second,
		Breaker:  breaker,
		Registry: registry,
	})
}

func TestRegistry_ProvidersSorted(t *testing.T) {
	registry := resilience.NewRegistry()
	registered(registry, "trip-api", resilience.BreakerConfig{})
	registered(registry, "dmi-climate", resilience.BreakerConfig{})

	providers := registry.Providers()
	require.Len(t, providers, 2)
	assert.Equal(t, "dmi-climate", providers[0].Name)
	assert.Equal(t, "trip-api", providers[1].Name)

	for _, p := range providers {
		assert.Equal(t, gobreaker.StateClosed, p.CircuitState)
		assert.Nil(t, p.StateSince)
		assert.Nil(t, p.LastSuccessAt)
		assert.Nil(t, p.LastFailureAt)
	}
	assert.True(t, registry.Healthy())
}

func TestRegistry_Empty(t *testing.T) {
	registry := resilience.NewRegistry()

	assert.Empty(t, registry.Providers())
	assert.True(t, registry.Healthy())

	_, ok := registry.Health("dmi-climate")
	assert.False(t, ok)
}

func TestRegistry_ReplacesSameName(t *testing.T) {
	registry := resilience.NewRegistry()
	registered(registry, "dmi-climate", resilience.BreakerConfig{})
	registered(registry, "dmi-climate", resilience.BreakerConfig{})

	assert.Len(t, registry.Providers(), 1)
}

func TestRegistry_RecordsOutcomes(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	client := registered(registry, "dmi-climate", resilience.BreakerConfig{MinRequests: 100})

	_, err := get(t, client, server.URL)
	require.NoError(t, err)

	h, ok := registry.Health("dmi-climate")
	require.True(t, ok)
	require.NotNil(t, h.LastSuccessAt)
	assert.Nil(t, h.LastFailureAt)
	assert.Empty(t, h.LastError)
	assert.Equal(t, uint32(1), h.Counts.TotalSuccesses)

	status.Store(http.StatusServiceUnavailable)
	_, err = get(t, client, server.URL)
	require.NoError(t, err)

	h, ok = registry.Health("dmi-climate")
	require.True(t, ok)
	require.NotNil(t, h.LastFailureAt)
	assert.Contains(t, h.LastError, "503")
	assert.NotNil(t, h.LastSuccessAt, "earlier success is kept")
}

func TestRegistry_OpenBreakerIsUnhealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	registered(registry, "trip-api", resilience.BreakerConfig{})
	client := registered(registry, "dmi-climate", resilience.BreakerConfig{MinRequests: 2})

	before := time.Now()
	for range 2 {
		_, _ = get(t, client, server.URL)
	}

	h, ok := registry.Health("dmi-climate")
	require.True(t, ok)
	assert.True(t, h.IsUnhealthy())
	require.NotNil(t, h.StateSince)
	assert.False(t, h.StateSince.Before(before))
	assert.False(t, registry.Healthy())

	trips, ok := registry.Health("trip-api")
	require.True(t, ok)
	assert.True(t, trips.IsHealthy())
}

func TestProviderHealth_States(t *testing.T) {
	tests := []struct {
		state     gobreaker.State
		healthy   bool
		degraded  bool
		unhealthy bool
	}{
		{gobreaker.StateClosed, true, false, false},
		{gobreaker.StateHalfOpen, false, true, false},
		{gobreaker.StateOpen, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			h := resilience.ProviderHealth{CircuitState: tt.state}
			assert.Equal(t, tt.healthy, h.IsHealthy())
			assert.Equal(t, tt.degraded, h.IsDegraded())
			assert.Equal(t, tt.unhealthy, h.IsUnhealthy())
		})
	}
}
