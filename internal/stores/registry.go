package stores

import (
	"fmt"
	"sync"
)

// Registry maps message selector names to store profiles
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// DefaultRegistry is the global registry instance holding the built-in
// store profiles.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty profile registry
func NewRegistry() *Registry {
	return &Registry{
		profiles: make(map[string]Profile),
	}
}

// Register adds or replaces a profile under its selector name
func (r *Registry) Register(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Selector] = p
}

// Get retrieves a profile by selector name
func (r *Registry) Get(selector string) (Profile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[selector]
	return p, ok
}

// List returns all registered selector names
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	return names
}

// IsRegistered checks if a selector has a profile
func (r *Registry) IsRegistered(selector string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.profiles[selector]
	return ok
}

// Get is a convenience lookup in the default registry. Unknown
// selectors are an error so jobs can reject bad control messages
// without touching the database.
func Get(selector string) (Profile, error) {
	p, ok := DefaultRegistry.Get(selector)
	if !ok {
		return Profile{}, fmt.Errorf("unknown store selector: %s", selector)
	}
	return p, nil
}

func init() {
	DefaultRegistry.Register(Rusteaco)
	DefaultRegistry.Register(Tea101)
	DefaultRegistry.Register(Gutenberg)
}
