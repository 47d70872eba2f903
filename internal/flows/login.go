package flows

import (
	"context"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/rotation"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureMissingInput
	LoginFailureLookup
	LoginFailureUnknownUser
	LoginFailureDisabled
	LoginFailurePassword
	LoginFailureIssue
	LoginFailureRotation
)

// LoginResult carries either the issued tokens or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	User    *User
	Tokens  Tokens
	// NeedsRehash is set when the stored hash should be re-encoded with the primary scheme.
	NeedsRehash bool
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	FindByEmail    func(context.Context, string) (*User, error)
	VerifyPassword func(password, hash string) (bool, error)
	NeedsRehash    func(hash string) (bool, error)
	// DummyHash is compared against when the account is absent or disabled so every
	// failure path pays for one password comparison.
	DummyHash    string
	IssueAccess  func(*User) (string, time.Time, error)
	IssueRefresh func(subject string) (string, time.Time, error)
	Rotation     rotation.Store
	Warn         func(string, ...any)
}

// RunLogin authenticates email/password and starts a new refresh lineage.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{Failure: LoginFailureMissingInput}
	}

	user, err := deps.FindByEmail(ctx, email)
	if err != nil {
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}
	if user == nil {
		burnComparison(deps, password)
		return LoginResult{Failure: LoginFailureUnknownUser}
	}
	if !user.Active {
		burnComparison(deps, password)
		return LoginResult{Failure: LoginFailureDisabled, User: user}
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		deps.Warn("authgate: stored password hash unusable", "subject", user.SubjectID, "error", err)
		return LoginResult{Failure: LoginFailurePassword, Err: err, User: user}
	}
	if !ok {
		return LoginResult{Failure: LoginFailurePassword, User: user}
	}

	tokens, err := issuePair(user, deps.IssueAccess, deps.IssueRefresh)
	if err != nil {
		return LoginResult{Failure: LoginFailureIssue, Err: err, User: user}
	}

	if _, err := deps.Rotation.SetActive(ctx, user.SubjectID, rotation.Fingerprint(tokens.RefreshToken), ""); err != nil {
		return LoginResult{Failure: LoginFailureRotation, Err: err, User: user}
	}

	result := LoginResult{User: user, Tokens: tokens}
	if deps.NeedsRehash != nil {
		if up, err := deps.NeedsRehash(user.PasswordHash); err == nil {
			result.NeedsRehash = up
		}
	}
	return result
}

func burnComparison(deps LoginDeps, password string) {
	if deps.DummyHash == "" {
		return
	}
	_, _ = deps.VerifyPassword(password, deps.DummyHash)
}

func issuePair(
	user *User,
	issueAccess func(*User) (string, time.Time, error),
	issueRefresh func(string) (string, time.Time, error),
) (Tokens, error) {
	access, accessExp, err := issueAccess(user)
	if err != nil {
		return Tokens{}, err
	}
	refresh, refreshExp, err := issueRefresh(user.SubjectID)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
