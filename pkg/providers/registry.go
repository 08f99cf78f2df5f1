package providers

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/time/rate"
)

// RegisterOptions control client-side throttling and circuit breaking for an adapter.
type RegisterOptions struct {
	// RequestsPerMinute caps calls to the vendor. Zero means unlimited.
	RequestsPerMinute int
	Breaker           BreakerConfig
}

type registration struct {
	adapter Adapter
	limiter *rate.Limiter
	breaker *Breaker
}

// ProviderInfo describes a registered provider.
type ProviderInfo struct {
	ID           ProviderID `json:"id"`
	Name         string     `json:"name"`
	Capabilities []Kind     `json:"capabilities"`
	Status       string     `json:"status"`
}

// Registry holds configured adapters keyed by ProviderID.
// Only adapters with credentials are registered; an ID missing from the
// registry is reported as not configured.
type Registry struct {
	mu       sync.RWMutex
	entries  map[ProviderID]*registration
	defaults map[Kind]ProviderID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:  make(map[ProviderID]*registration),
		defaults: make(map[Kind]ProviderID),
	}
}

// Register adds an adapter. Registering the same ID twice is an error.
func (r *Registry) Register(a Adapter, opts RegisterOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[a.ID()]; exists {
		return fmt.Errorf("provider %q already registered", a.ID())
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(opts.RequestsPerMinute) / 60.0)
		burst = max(1, opts.RequestsPerMinute/10)
	}
	if opts.Breaker.Threshold == 0 {
		opts.Breaker = DefaultBreakerConfig()
	}

	r.entries[a.ID()] = &registration{
		adapter: a,
		limiter: rate.NewLimiter(limit, burst),
		breaker: NewBreaker(a.ID(), opts.Breaker),
	}
	return nil
}

// Get returns a registered adapter.
func (r *Registry) Get(id ProviderID) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.adapter, true
}

func (r *Registry) entry(id ProviderID) (*registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// SetDefault selects the provider used for a kind when callers do not name one.
// The provider must be registered and support the kind.
func (r *Registry) SetDefault(kind Kind, id ProviderID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("provider %q not registered", id)
	}
	if !Supports(e.adapter, kind) {
		return fmt.Errorf("provider %q does not support %s", id, kind)
	}
	r.defaults[kind] = id
	return nil
}

// Default returns the default provider for a kind. Without an explicit
// default, the first registered provider supporting the kind (by ID) is used.
func (r *Registry) Default(kind Kind) (ProviderID, bool) {
	r.mu.RLock()
	id, ok := r.defaults[kind]
	r.mu.RUnlock()
	if ok {
		return id, true
	}

	available := r.Available(kind)
	if len(available) == 0 {
		return "", false
	}
	return available[0].ID, true
}

// Available lists registered providers, optionally filtered by kind, ordered by ID.
// An empty kind lists every provider.
func (r *Registry) Available(kind Kind) []ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderInfo, 0, len(r.entries))
	for id, e := range r.entries {
		if kind != "" && !Supports(e.adapter, kind) {
			continue
		}
		status := "available"
		if e.breaker.State() != BreakerClosed {
			status = "degraded"
		}
		out = append(out, ProviderInfo{
			ID:           id,
			Name:         e.adapter.Name(),
			Capabilities: e.adapter.Kinds(),
			Status:       status,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
