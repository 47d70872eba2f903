package flows

import "time"

// User is the flow-local credential projection.
type User struct {
	SubjectID    string
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
	Permissions  []string
	Active       bool
	MFAVerified  bool
}

// Tokens is a freshly issued access/refresh pair.
type Tokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
