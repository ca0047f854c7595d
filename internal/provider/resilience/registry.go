package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Health is a point-in-time view of a provider's availability.
type Health struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// Healthy reports whether the provider's circuit is closed.
func (h Health) Healthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// Registry tracks provider clients so the ops status endpoint can report
// upstream availability.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*entry
}

type entry struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*entry)}
}

func (r *Registry) register(name string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = &entry{client: c}
}

func (r *Registry) recordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		now := time.Now()
		e.lastSuccessAt = &now
	}
}

func (r *Registry) recordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.providers[name]; ok {
		now := time.Now()
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// HealthOf returns the health of a single provider, or false if unknown.
func (r *Registry) HealthOf(name string) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.providers[name]
	if !ok {
		return Health{}, false
	}
	return e.health(name), true
}

// All returns health for every registered provider.
func (r *Registry) All() []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.providers))
	for name, e := range r.providers {
		out = append(out, e.health(name))
	}
	return out
}

func (e *entry) health(name string) Health {
	return Health{
		Name:          name,
		CircuitState:  e.client.State(),
		Counts:        e.client.Counts(),
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
	}
}
