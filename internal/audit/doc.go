// Package audit relays security events from the session lifecycle to pluggable sinks.
//
//   - [Sink]: consumer interface (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered asynchronous relay, drop-if-full or block-if-full.
//   - [Event]: the record itself.
//
// The package decides nothing about which events exist. Callers choose event types.
// Sinks must never receive tokens, fingerprints or password material.
package audit
