package authgate

// Permission strings understood by the demo handlers and seeded accounts.
const (
	PermUserRead   = "user:read"
	PermUserWrite  = "user:write"
	PermUserUpdate = "user:update"
	PermUserDelete = "user:delete"
)

// Role names used by the seeded accounts and the logout route.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// PermissionsUserAll lists every user permission.
func PermissionsUserAll() []string {
	return []string{PermUserRead, PermUserWrite, PermUserUpdate, PermUserDelete}
}
