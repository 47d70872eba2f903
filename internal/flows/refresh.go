package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/authgate/rotation"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissing
	RefreshFailureVerify
	RefreshFailureLookup
	RefreshFailureInactive
	RefreshFailureReuse
	RefreshFailureRotation
	RefreshFailureIssue
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	SubjectID string
	User      *User
	Tokens    Tokens
	// Observed is the lineage state the presented token classified as. On a lost
	// swap it is StateRotated even though the pre-read saw StateActive.
	Observed rotation.State
	// LineageRevoked reports that InvalidateAll ran and succeeded.
	LineageRevoked bool
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	// VerifyRefresh returns the subject of a well-formed, correctly signed, unexpired token.
	VerifyRefresh        func(string) (string, error)
	FindByID             func(context.Context, string) (*User, error)
	IssueAccess          func(*User) (string, time.Time, error)
	IssueRefresh         func(subject string) (string, time.Time, error)
	Rotation             rotation.Store
	RevokeLineageOnReuse bool
	Warn                 func(string, ...any)
}

// RunRefresh verifies a refresh token, checks it against the subject's lineage and
// swaps in a new pair. The swap is the linearization point: of N concurrent calls
// presenting the same token, only the one whose SetActive returns true succeeds.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}

	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissing}
	}

	subject, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureVerify, Err: err}
	}

	user, err := deps.FindByID(ctx, subject)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureLookup, Err: err, SubjectID: subject}
	}
	if user == nil || !user.Active {
		res := RefreshResult{Failure: RefreshFailureInactive, SubjectID: subject, User: user}
		if err := deps.Rotation.InvalidateAll(ctx, subject); err != nil {
			deps.Warn("authgate: lineage invalidation for inactive subject failed", "subject", subject, "error", err)
		} else {
			res.LineageRevoked = true
		}
		return res
	}

	presented := rotation.Fingerprint(refreshToken)
	record, err := deps.Rotation.GetActive(ctx, subject)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureRotation, Err: err, SubjectID: subject, User: user}
	}
	if state := record.Classify(presented); state != rotation.StateActive {
		return reuse(ctx, subject, user, state, deps)
	}

	tokens, err := issuePair(user, deps.IssueAccess, deps.IssueRefresh)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, SubjectID: subject, User: user}
	}

	swapped, err := deps.Rotation.SetActive(ctx, subject, rotation.Fingerprint(tokens.RefreshToken), presented)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureRotation, Err: err, SubjectID: subject, User: user}
	}
	if !swapped {
		return reuse(ctx, subject, user, rotation.StateRotated, deps)
	}

	return RefreshResult{
		SubjectID: subject,
		User:      user,
		Tokens:    tokens,
		Observed:  rotation.StateActive,
	}
}

func reuse(ctx context.Context, subject string, user *User, observed rotation.State, deps RefreshDeps) RefreshResult {
	res := RefreshResult{
		Failure:   RefreshFailureReuse,
		SubjectID: subject,
		User:      user,
		Observed:  observed,
	}
	if !deps.RevokeLineageOnReuse {
		return res
	}
	if err := deps.Rotation.InvalidateAll(ctx, subject); err != nil {
		deps.Warn("authgate: lineage invalidation after reuse failed", "subject", subject, "error", err)
		return res
	}
	res.LineageRevoked = true
	return res
}
