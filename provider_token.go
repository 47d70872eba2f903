package authgate

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	internalmetrics "github.com/MrEthical07/authgate/internal/metrics"
	"github.com/MrEthical07/authgate/jwt"
)

// TokenIdentityProvider resolves identities from signed access tokens carried in a
// cookie or, failing that, an "Authorization: Bearer" header.
type TokenIdentityProvider struct {
	codec      *jwt.Codec
	cookieName string
	logger     *slog.Logger
	metrics    *internalmetrics.Metrics
}

// NewTokenIdentityProvider returns a provider reading cookieName ("auth_token" when
// empty). A nil logger discards debug output.
func NewTokenIdentityProvider(codec *jwt.Codec, cookieName string, logger *slog.Logger) *TokenIdentityProvider {
	if cookieName == "" {
		cookieName = DefaultConfig().Cookie.AccessName
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TokenIdentityProvider{codec: codec, cookieName: cookieName, logger: logger}
}

// GetUser implements IdentityProvider. Every failure yields nil.
func (p *TokenIdentityProvider) GetUser(r *http.Request) *Identity {
	if p == nil || p.codec == nil || r == nil {
		return nil
	}

	token := p.extract(r)
	if token == "" {
		return nil
	}

	start := time.Now()
	claims, err := p.codec.VerifyAccess(token)
	p.metrics.Observe(internalmetrics.MetricVerifyLatency, time.Since(start))
	if err != nil {
		p.logger.LogAttrs(r.Context(), slog.LevelDebug, "authgate: access token rejected",
			slog.String("error", err.Error()))
		return nil
	}

	return &Identity{
		SubjectID:     claims.UID,
		Roles:         claims.Roles,
		Permissions:   claims.Permissions,
		Authenticated: true,
		MFAVerified:   claims.MFAVerified,
		Metadata: map[string]any{
			"email": claims.Email,
			"name":  claims.Name,
		},
	}
}

func (p *TokenIdentityProvider) extract(r *http.Request) string {
	if c, err := r.Cookie(p.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

var _ IdentityProvider = (*TokenIdentityProvider)(nil)
