// Package middleware is the net/http boundary of authgate.
//
// # Gate
//
// [Gate] resolves the caller through the registered authgate.IdentityProvider,
// runs authgate.Authorize against a requirement and either attaches the identity
// to the request context or answers 401/403 with a JSON body. Handlers read the
// identity back with [CurrentIdentity].
//
// # Handlers
//
// [Handlers] exposes login, logout, refresh and me endpoints on top of
// authgate.Service and moves tokens through HttpOnly cookies ([SetTokenCookies],
// [ClearTokenCookies]).
//
// This package translates HTTP semantics into Service calls. It never parses
// tokens or touches stores itself.
package middleware
