package provider

import "fmt"

// Registry holds all configured OAuth providers and allows
// lookup by provider name. It performs no auth logic itself.
type Registry struct {
	providers map[string]OAuthProvider
	order     []string
}

// NewRegistry registers the given OAuth providers by name.
// Provider names must be unique.
func NewRegistry(list ...OAuthProvider) *Registry {
	m := make(map[string]OAuthProvider)
	var order []string
	for _, p := range list {
		if _, dup := m[p.Name()]; !dup {
			order = append(order, p.Name())
		}
		m[p.Name()] = p
	}
	return &Registry{providers: m, order: order}
}

// Get returns the OAuth provider by name or an error if not registered.
func (r *Registry) Get(name string) (OAuthProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", name)
	}
	return p, nil
}

// All returns the registered providers in registration order.
func (r *Registry) All() []OAuthProvider {
	out := make([]OAuthProvider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}
