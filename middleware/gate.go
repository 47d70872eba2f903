package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/MrEthical07/authgate"
)

// DecisionObserver receives every gate decision. *authgate.Service satisfies it.
type DecisionObserver interface {
	ObserveDecision(ctx context.Context, id *authgate.Identity, required authgate.Requirement, d authgate.Decision)
}

// Gate enforces requirements on HTTP handlers.
type Gate struct {
	registry *authgate.ProviderRegistry
	observer DecisionObserver
}

// NewGate returns a gate resolving identities through registry. observer may be nil.
func NewGate(registry *authgate.ProviderRegistry, observer DecisionObserver) *Gate {
	return &Gate{registry: registry, observer: observer}
}

// Authorize resolves the caller of r and decides against required. An unconfigured
// registry denies as unauthenticated.
func (g *Gate) Authorize(r *http.Request, required authgate.Requirement) (*authgate.Identity, authgate.Decision) {
	var id *authgate.Identity
	if g != nil {
		if p, err := g.registry.Get(); err == nil {
			id = p.GetUser(r)
		}
	}
	d := authgate.Authorize(id, required)
	if g != nil && g.observer != nil {
		g.observer.ObserveDecision(r.Context(), id, required, d)
	}
	return id, d
}

// Require returns middleware admitting callers that hold any of required. With no
// arguments it only demands authentication.
func (g *Gate) Require(required ...string) func(http.Handler) http.Handler {
	req := authgate.Requirement(required)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, d := g.Authorize(r, req)
			switch d {
			case authgate.DecisionAllow:
				ctx := authgate.WithIdentity(r.Context(), id)
				next.ServeHTTP(w, r.WithContext(ctx))
			case authgate.DecisionDenyForbidden:
				writeError(w, http.StatusForbidden, "Forbidden", "")
			default:
				writeError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
			}
		})
	}
}

// CurrentIdentity returns the identity attached by [Gate.Require], or resolves it
// through registry when the route was not gated. It returns nil for anonymous callers.
func CurrentIdentity(r *http.Request, registry *authgate.ProviderRegistry) *authgate.Identity {
	if id := authgate.IdentityFromContext(r.Context()); id != nil {
		return id
	}
	p, err := registry.Get()
	if err != nil {
		return nil
	}
	return p.GetUser(r)
}

// ClientInfo records the remote address and user agent on the request context so
// audit events can carry them.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := authgate.WithClientIP(r.Context(), ip)
		ctx = authgate.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
