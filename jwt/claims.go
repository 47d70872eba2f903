package jwt

import (
	"errors"

	gjwt "github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates access tokens from refresh tokens inside the signed payload.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	errWrongType     = errors.New("unexpected token type")
	errMissingUserID = errors.New("missing uid claim")
)

// AccessClaims is the decoded payload of an access token.
type AccessClaims struct {
	UID         string    `json:"uid"`
	Type        TokenType `json:"typ"`
	Roles       []string  `json:"roles,omitempty"`
	Permissions []string  `json:"perms,omitempty"`
	MFAVerified bool      `json:"mfa,omitempty"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	gjwt.RegisteredClaims
}

// Validate is invoked by the jwt parser after the registered claims pass.
func (c *AccessClaims) Validate() error {
	if c.Type != TypeAccess {
		return errWrongType
	}
	if c.UID == "" || c.Subject != c.UID {
		return errMissingUserID
	}
	return nil
}

// RefreshClaims is the decoded payload of a refresh token. It carries no authorization
// data; roles are always reloaded from the credential store on refresh.
type RefreshClaims struct {
	UID  string    `json:"uid"`
	Type TokenType `json:"typ"`
	gjwt.RegisteredClaims
}

// Validate is invoked by the jwt parser after the registered claims pass.
func (c *RefreshClaims) Validate() error {
	if c.Type != TypeRefresh {
		return errWrongType
	}
	if c.UID == "" || c.Subject != c.UID {
		return errMissingUserID
	}
	return nil
}

// AccessInput is what the caller knows about a subject when minting an access token.
type AccessInput struct {
	Subject     string
	Roles       []string
	Permissions []string
	MFAVerified bool
	Email       string
	Name        string
}
