// Package authgate authenticates HTTP callers with short-lived access tokens and
// rotating refresh tokens, and authorizes them by role or permission before any
// business logic runs.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Service], [Builder], [Config], the
// [IdentityProvider] abstraction with its token implementation, the
// [ProviderRegistry] and the pure [Authorize] decision. Token signing lives in jwt/,
// refresh lineages in rotation/, hashing in password/, and flow orchestration,
// audit dispatch and counters under internal/.
//
// # Refresh lineages
//
// Every subject has at most one live refresh token. Login starts a new lineage;
// Refresh swaps the current token for a new one with a compare-and-set on the
// rotation store, so of several concurrent refreshes presenting the same token
// exactly one wins. Presenting a replaced token is treated as theft: the caller gets
// ErrTokenReused and, by default, the lineage is revoked.
//
// # What this package must NOT do
//
//   - Log or audit raw tokens, secrets or password hashes.
//   - Leak why authorization failed beyond authenticated versus forbidden.
//   - Import any sub-package that re-imports authgate.
package authgate
