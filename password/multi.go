package password

// Multi verifies hashes from several schemes and hashes with the primary one.
type Multi struct {
	primary Hasher
	schemes []Hasher
}

// NewMulti returns a [Multi] that hashes with primary and also accepts legacy schemes.
func NewMulti(primary Hasher, legacy ...Hasher) *Multi {
	schemes := make([]Hasher, 0, 1+len(legacy))
	schemes = append(schemes, primary)
	for _, h := range legacy {
		if h != nil {
			schemes = append(schemes, h)
		}
	}
	return &Multi{primary: primary, schemes: schemes}
}

// Hash delegates to the primary scheme.
func (m *Multi) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

// Verify dispatches on the hash prefix.
func (m *Multi) Verify(password, encodedHash string) (bool, error) {
	for _, s := range m.schemes {
		if s.Recognizes(encodedHash) {
			return s.Verify(password, encodedHash)
		}
	}
	return false, ErrUnknownScheme
}

// Recognizes reports whether any configured scheme owns encodedHash.
func (m *Multi) Recognizes(encodedHash string) bool {
	for _, s := range m.schemes {
		if s.Recognizes(encodedHash) {
			return true
		}
	}
	return false
}

// NeedsUpgrade is true for hashes from a legacy scheme or with weaker primary parameters.
func (m *Multi) NeedsUpgrade(encodedHash string) (bool, error) {
	if m.primary.Recognizes(encodedHash) {
		return m.primary.NeedsUpgrade(encodedHash)
	}
	if m.Recognizes(encodedHash) {
		return true, nil
	}
	return false, ErrUnknownScheme
}

var (
	_ Hasher = (*Argon2)(nil)
	_ Hasher = (*Bcrypt)(nil)
	_ Hasher = (*Multi)(nil)
)
