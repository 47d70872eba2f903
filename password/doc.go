// Package password hashes and verifies user passwords.
//
// Two schemes are provided: [Argon2] (PHC string, the default for new hashes) and
// [Bcrypt] (modular crypt format, as produced by most user stores). [Multi] picks the
// scheme from the stored hash prefix so both can coexist in one credential table, and
// reports hashes that should be re-encoded with the primary scheme.
//
// All comparisons are constant time.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Log plaintext passwords or hash parameters.
package password
