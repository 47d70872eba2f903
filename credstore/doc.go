// Package credstore provides authgate.CredentialStore implementations: an
// in-memory store for development and tests, and a bun-backed SQL store.
//
// Emails are matched case-insensitively. Both stores return (nil, nil) for an
// unknown account and implement authgate.PasswordHashUpdater.
package credstore
