package authgate

import "errors"

var (
	// ErrUnconfigured is returned by ProviderRegistry.Get before a provider is registered.
	ErrUnconfigured = errors.New("identity provider not configured")
	// ErrInvalidCredentials covers unknown email, wrong password and missing input alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled is returned by Login when the credential exists but is inactive.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrTokenMissing is returned by Refresh when no token was presented.
	ErrTokenMissing = errors.New("refresh token missing")
	// ErrTokenInvalid covers bad signatures, expiry and malformed tokens.
	ErrTokenInvalid = errors.New("refresh token invalid")
	// ErrTokenReused is returned when a rotated or revoked refresh token is presented.
	ErrTokenReused = errors.New("refresh token reused")
	// ErrUserInactive is returned by Refresh when the subject is gone or deactivated.
	ErrUserInactive = errors.New("user inactive")
	// ErrDenied is the authorization failure for an authenticated identity.
	ErrDenied = errors.New("access denied")
	// ErrUnauthenticated is the authorization failure when no identity was resolved.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrStoreUnavailable wraps credential and rotation backend failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrServiceNotReady is returned by a nil or closed Service.
	ErrServiceNotReady = errors.New("service not ready")
)
