package secrets

import (
	"fmt"
	"strings"
	"sync"
)

// Keyring resolves secrets by scope (for example a provider name) on demand.
// Resolved values are kept in memory only.
type Keyring struct {
	mu      sync.Mutex
	sources map[string]Source
	cache   map[string]string
}

func NewKeyring() *Keyring {
	return &Keyring{
		sources: make(map[string]Source),
		cache:   make(map[string]string),
	}
}

// Add registers the source for a scope, replacing any previous one.
func (k *Keyring) Add(scope string, src Source) {
	scope = normalizeScope(scope)
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sources[scope] = src
	delete(k.cache, scope)
}

// Lookup loads the secret registered for scope.
func (k *Keyring) Lookup(scope string) (string, error) {
	scope = normalizeScope(scope)

	k.mu.Lock()
	defer k.mu.Unlock()

	if v, ok := k.cache[scope]; ok {
		return v, nil
	}

	src, ok := k.sources[scope]
	if !ok {
		return "", fmt.Errorf("no credentials configured for %q", scope)
	}
	if src.Name == "" {
		src.Name = scope + " api key"
	}

	v, err := Load(src)
	if err != nil {
		return "", err
	}
	k.cache[scope] = v
	return v, nil
}

func normalizeScope(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
