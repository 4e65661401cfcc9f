package offline

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// Reachability reports whether the remote services can be reached.
type Reachability interface {
	Reachable(ctx context.Context) bool
}

// DefaultProbeTimeout bounds a single reachability probe.
const DefaultProbeTimeout = 3 * time.Second

// NetReachability requires both a usable network link and a successful
// HTTP probe. Link-layer connectivity alone is not enough.
type NetReachability struct {
	probeURL string
	client   *http.Client
	linkUp   func() bool
}

// NetReachabilityConfig holds configuration for NetReachability.
type NetReachabilityConfig struct {
	// ProbeURL is requested with HEAD. Any HTTP response counts as reachable.
	ProbeURL string

	// Timeout per probe (default DefaultProbeTimeout).
	Timeout time.Duration

	// LinkUp overrides the interface check. Used in tests.
	LinkUp func() bool
}

// NewNetReachability creates a reachability check.
func NewNetReachability(cfg NetReachabilityConfig) *NetReachability {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	linkUp := cfg.LinkUp
	if linkUp == nil {
		linkUp = InterfacesUp
	}
	return &NetReachability{
		probeURL: cfg.ProbeURL,
		client:   &http.Client{Timeout: timeout},
		linkUp:   linkUp,
	}
}

// Reachable reports whether the link is up and the probe answers.
func (n *NetReachability) Reachable(ctx context.Context) bool {
	if !n.linkUp() {
		return false
	}
	if n.probeURL == "" {
		return true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, n.probeURL, nil)
	if err != nil {
		return false
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// InterfacesUp reports whether a non-loopback interface is up with an address.
func InterfacesUp() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err == nil && len(addrs) > 0 {
			return true
		}
	}
	return false
}

// StaticReachability is a switchable reachability value.
type StaticReachability struct {
	up atomic.Bool
}

// NewStaticReachability creates a StaticReachability in the given state.
func NewStaticReachability(up bool) *StaticReachability {
	r := &StaticReachability{}
	r.up.Store(up)
	return r
}

// Set changes the reported state.
func (r *StaticReachability) Set(up bool) {
	r.up.Store(up)
}

// Reachable returns the current state.
func (r *StaticReachability) Reachable(context.Context) bool {
	return r.up.Load()
}

var (
	_ Reachability = (*NetReachability)(nil)
	_ Reachability = (*StaticReachability)(nil)
)
