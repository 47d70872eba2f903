// Package flows contains pure-function orchestrators for the session lifecycle:
// login, refresh and logout.
//
// Each flow accepts a typed dependency struct and returns a result carrying a failure
// kind instead of a host-level error. The root Service maps kinds to its sentinel
// errors, audit events and metrics, so flows never import the root package.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authgate (import cycle).
//   - Perform I/O directly. All I/O goes through dependency functions or rotation.Store.
package flows
