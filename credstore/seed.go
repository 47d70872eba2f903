package credstore

import (
	"fmt"

	"github.com/MrEthical07/authgate"
	"github.com/google/uuid"
)

// DevAccount is a plaintext account description used for local seeding.
type DevAccount struct {
	Email       string
	Name        string
	Password    string
	Roles       []string
	Permissions []string
}

// DevAccounts returns the two development accounts: an administrator holding every
// user permission and a read-only user.
func DevAccounts() []DevAccount {
	return []DevAccount{
		{
			Email:       "admin@example.com",
			Name:        "Admin User",
			Password:    "password123",
			Roles:       []string{authgate.RoleAdmin, authgate.RoleUser},
			Permissions: authgate.PermissionsUserAll(),
		},
		{
			Email:       "user@example.com",
			Name:        "Regular User",
			Password:    "userpass",
			Roles:       []string{authgate.RoleUser},
			Permissions: []string{authgate.PermUserRead},
		},
	}
}

// Seed hashes each account with hash and assigns a random subject id.
func Seed(hash func(string) (string, error), accounts []DevAccount) ([]authgate.Credential, error) {
	out := make([]authgate.Credential, 0, len(accounts))
	for _, a := range accounts {
		h, err := hash(a.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", a.Email, err)
		}
		out = append(out, authgate.Credential{
			SubjectID:    uuid.NewString(),
			Email:        a.Email,
			Name:         a.Name,
			PasswordHash: h,
			Roles:        a.Roles,
			Permissions:  a.Permissions,
			Active:       true,
		})
	}
	return out, nil
}
