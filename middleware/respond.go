package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/authgate"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, label, message string) {
	writeJSON(w, status, errorBody{Error: label, Message: message})
}

// statusFor maps a Service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, authgate.ErrDenied):
		return http.StatusForbidden
	case errors.Is(err, authgate.ErrStoreUnavailable), errors.Is(err, authgate.ErrServiceNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

func loginMessage(err error) string {
	switch {
	case errors.Is(err, authgate.ErrAccountDisabled), errors.Is(err, authgate.ErrInvalidCredentials):
		return "Invalid email or password"
	default:
		return "An error occurred during login"
	}
}

func refreshMessage(err error) string {
	switch {
	case errors.Is(err, authgate.ErrTokenMissing):
		return "Refresh token not found"
	case errors.Is(err, authgate.ErrUserInactive):
		return "User not found or inactive"
	case errors.Is(err, authgate.ErrTokenReused):
		return "Refresh token is invalid"
	case errors.Is(err, authgate.ErrTokenInvalid):
		return "Invalid refresh token"
	default:
		return "Refresh is temporarily unavailable"
	}
}
