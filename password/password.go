package password

import "errors"

// ErrUnknownScheme is returned when no configured scheme recognizes a stored hash.
var ErrUnknownScheme = errors.New("password: unrecognized hash scheme")

// Verifier checks a plaintext password against a stored hash. A mismatch is reported
// as (false, nil); errors are reserved for unparsable hashes.
type Verifier interface {
	Verify(password, encodedHash string) (bool, error)
}

// Hasher produces new hashes in one scheme and verifies hashes of that scheme.
type Hasher interface {
	Verifier
	Hash(password string) (string, error)
	// Recognizes reports whether encodedHash belongs to this scheme.
	Recognizes(encodedHash string) bool
	// NeedsUpgrade reports whether encodedHash was produced with weaker parameters.
	NeedsUpgrade(encodedHash string) (bool, error)
}
