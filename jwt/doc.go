// Package jwt issues and verifies the two token classes used by authgate: short-lived
// access tokens and long-lived refresh tokens.
//
// Each class is signed with its own HS256 secret so a leaked access secret cannot be
// used to mint refresh tokens. Verification checks the signature before any claim is
// trusted, then expiry, then the typed claim shape.
//
// # What this package must NOT do
//
//   - Access Redis, SQL or any other I/O.
//   - Track rotation state; refresh revocation lives in the rotation package.
package jwt
