package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MrEthical07/authgate"
)

const maxLoginBody = 1 << 16

// Handlers serves the /auth endpoints.
type Handlers struct {
	service *authgate.Service
	gate    *Gate
	config  authgate.Config
	logger  *slog.Logger
}

// NewHandlers binds the endpoints to service. Protected endpoints go through gate;
// a nil gate resolves identities with the service's own token provider.
func NewHandlers(service *authgate.Service, gate *Gate, logger *slog.Logger) *Handlers {
	if gate == nil {
		gate = NewGate(authgate.NewProviderRegistry(service.IdentityProvider()), service)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		service: service,
		gate:    gate,
		config:  service.Config(),
		logger:  logger,
	}
}

// Register mounts the endpoints on mux:
//
//	POST /auth/login
//	GET  /auth/logout   (role user)
//	GET  /auth/me       (role user)
//	POST /auth/refresh
func (h *Handlers) Register(mux *http.ServeMux) {
	userOnly := h.gate.Require(authgate.RoleUser)

	mux.Handle("POST /auth/login", ClientInfo(http.HandlerFunc(h.Login)))
	mux.Handle("GET /auth/logout", ClientInfo(userOnly(http.HandlerFunc(h.Logout))))
	mux.Handle("GET /auth/me", userOnly(http.HandlerFunc(h.Me)))
	mux.Handle("POST /auth/refresh", ClientInfo(http.HandlerFunc(h.Refresh)))
}

// Login authenticates a JSON {email,password} body and sets the token cookies.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBody)).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "Request body must be JSON")
		return
	}
	payload = payload.normalized()
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", "Email and password are required")
		return
	}

	res, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		status := statusFor(err)
		if status != http.StatusUnauthorized {
			h.logger.Warn("authgate: login unavailable", slog.String("error", err.Error()))
		}
		writeError(w, status, "Invalid credentials", loginMessage(err))
		return
	}

	SetTokenCookies(w, h.config, res.TokenPair)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    res.User,
	})
}

// Logout ends the caller's refresh lineage and clears the cookies.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	id := authgate.IdentityFromContext(r.Context())
	if id == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		return
	}

	ClearTokenCookies(w, h.config)
	if err := h.service.Logout(r.Context(), id.SubjectID); err != nil {
		h.logger.Warn("authgate: logout failed", slog.String("error", err.Error()))
		writeError(w, statusFor(err), "Logout failed", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// Me returns the caller's identity projection.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	id := CurrentIdentity(r, h.gate.registry)
	if id == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized", "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, authgate.UserInfoFromIdentity(id))
}

// Refresh rotates the refresh cookie and reissues both tokens.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(h.config.Cookie.RefreshName); err == nil {
		token = c.Value
	}

	pair, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusUnauthorized {
			ClearTokenCookies(w, h.config)
		} else {
			h.logger.Warn("authgate: refresh unavailable", slog.String("error", err.Error()))
		}
		writeError(w, status, "Token refresh failed", refreshMessage(err))
		return
	}

	SetTokenCookies(w, h.config, *pair)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed successfully"})
}
