// Package rotation tracks the single live refresh token of every subject lineage and
// swaps it atomically on refresh.
//
// # Lineage model
//
// Each subject owns one lineage record holding the fingerprint of the current refresh
// token, the fingerprint it replaced, and a [State]. Login starts a lineage with an
// unconditional [Store.SetActive]. Refresh replaces the current fingerprint with a
// compare-and-swap keyed on the presented one. Logout and reuse detection call
// [Store.InvalidateAll].
//
// # Adapters
//
//   - [RedisStore]: one hash per subject, CAS via a Lua script.
//   - [SQLStore]: one row per subject, CAS via a guarded UPDATE (bun).
//   - [MemoryStore]: mutex-guarded map for tests and single-process deployments.
//
// # What this package must NOT do
//
//   - Parse or verify tokens. Callers pass fingerprints produced by [Fingerprint].
//   - Store raw refresh tokens.
//   - Decide what a reuse means for the caller. It only reports CAS outcomes.
package rotation
