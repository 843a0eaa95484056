package ai

import (
	"sort"
	"sync"
)

// Registry maps providers to analyzers.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[Provider]Analyzer
}

func NewRegistry() *Registry {
	return &Registry{analyzers: make(map[Provider]Analyzer)}
}

func (r *Registry) Register(p Provider, a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyzers[p] = a
}

// Lookup returns the analyzer for p or an InvalidProviderError.
func (r *Registry) Lookup(p Provider) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[p]
	if !ok || a == nil {
		return nil, &InvalidProviderError{Value: string(p)}
	}
	return a, nil
}

func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.analyzers))
	for p := range r.analyzers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
