package provider

import "fmt"

// Registry is a static, ordered collection of providers looked up by kind.
// Registry order is the order in which providers are considered and started.
type Registry struct {
	providers []Provider
	byKind    map[Kind]Provider
}

// NewRegistry creates a registry from providers in the given order.
// Kinds must be unique and non-empty.
func NewRegistry(providers ...Provider) (*Registry, error) {
	r := &Registry{
		providers: make([]Provider, 0, len(providers)),
		byKind:    make(map[Kind]Provider, len(providers)),
	}
	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("provider registry: nil provider")
		}
		kind := p.Name()
		if kind == "" {
			return nil, fmt.Errorf("provider registry: provider %T has an empty name", p)
		}
		if _, exists := r.byKind[kind]; exists {
			return nil, fmt.Errorf("provider registry: duplicate kind %q", kind)
		}
		r.providers = append(r.providers, p)
		r.byKind[kind] = p
	}
	return r, nil
}

// DefaultRegistry returns the built-in providers: postgres, mysql, redis.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Postgres{}, MySQL{}, Redis{})
	if err != nil {
		panic(err)
	}
	return r
}

// Providers returns the providers in registry order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Kinds returns the registered kinds in registry order.
func (r *Registry) Kinds() []Kind {
	out := make([]Kind, len(r.providers))
	for i, p := range r.providers {
		out[i] = p.Name()
	}
	return out
}

// Lookup finds a provider by name.
func (r *Registry) Lookup(name string) (Provider, bool) {
	p, ok := r.byKind[Kind(name)]
	return p, ok
}

// Get finds a provider by kind, returning ErrUnknownProvider when missing.
func (r *Registry) Get(kind Kind) (Provider, error) {
	p, ok := r.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, kind)
	}
	return p, nil
}

// Len returns the number of providers.
func (r *Registry) Len() int {
	return len(r.providers)
}
