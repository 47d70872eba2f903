package authgate

import "sync/atomic"

// ProviderRegistry holds the active IdentityProvider. Register is expected during
// startup; Get is lock-free and safe from any number of request goroutines.
type ProviderRegistry struct {
	current atomic.Pointer[providerSlot]
}

type providerSlot struct {
	provider IdentityProvider
}

// NewProviderRegistry returns a registry, optionally pre-populated with p.
func NewProviderRegistry(p IdentityProvider) *ProviderRegistry {
	r := &ProviderRegistry{}
	if p != nil {
		r.Register(p)
	}
	return r
}

// Register installs p, replacing any previous provider. A nil p clears the slot.
func (r *ProviderRegistry) Register(p IdentityProvider) {
	if p == nil {
		r.current.Store(nil)
		return
	}
	r.current.Store(&providerSlot{provider: p})
}

// Get returns the registered provider or ErrUnconfigured.
func (r *ProviderRegistry) Get() (IdentityProvider, error) {
	if r == nil {
		return nil, ErrUnconfigured
	}
	slot := r.current.Load()
	if slot == nil {
		return nil, ErrUnconfigured
	}
	return slot.provider, nil
}

// MustGet is Get for startup wiring checks; it panics with ErrUnconfigured.
func (r *ProviderRegistry) MustGet() IdentityProvider {
	p, err := r.Get()
	if err != nil {
		panic(err)
	}
	return p
}
