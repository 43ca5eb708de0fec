package acquirer

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps adapter names to implementations. It is populated during
// startup and read-only afterwards, so the lock is uncontended at steady
// state.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	logger   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		logger:   logger.With().Str("component", "acquirer_registry").Logger(),
	}
}

// Register adds an adapter under its own name. Registering the same name
// twice overwrites the earlier adapter and logs a warning.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[a.Name()]; exists {
		r.logger.Warn().Str("adapter", a.Name()).Msg("adapter re-registered, overwriting")
	}
	r.adapters[a.Name()] = a
}

// Get returns the adapter registered under name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("adapter not found: %q (available: %s)", name, strings.Join(r.names(), ", "))
	}
	return a, nil
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.names()
}

func (r *Registry) names() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
