package rotation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps backend failures from every adapter.
var ErrStoreUnavailable = errors.New("rotation store unavailable")

// ErrInvalidSubject is returned when an operation is called without a subject.
var ErrInvalidSubject = errors.New("rotation subject required")

// State is the lifecycle position of a lineage record.
type State uint8

const (
	// StateNone means no record exists for the subject.
	StateNone State = iota
	// StateActive means Current is the only refresh fingerprint that may be exchanged.
	StateActive
	// StateRotated is reported by Classify for a fingerprint that was replaced.
	StateRotated
	// StateInvalidated means the lineage was revoked by logout or reuse detection.
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateActive:
		return "active"
	case StateRotated:
		return "rotated"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

func parseState(v string) State {
	switch v {
	case "active":
		return StateActive
	case "rotated":
		return StateRotated
	case "invalidated":
		return StateInvalidated
	default:
		return StateNone
	}
}

// Record is the persisted lineage of one subject.
type Record struct {
	SubjectID string
	State     State
	Current   string
	Previous  string
	UpdatedAt time.Time
}

// Classify reports where fingerprint sits in the lineage. Only StateActive permits an
// exchange; every other result is treated as reuse by the caller.
func (r Record) Classify(fingerprint string) State {
	switch r.State {
	case StateNone:
		return StateNone
	case StateInvalidated:
		return StateInvalidated
	}
	if fingerprint != "" && fingerprint == r.Current {
		return StateActive
	}
	return StateRotated
}

// Store persists lineage records. Implementations must make SetActive atomic: among
// concurrent calls that share expectedPrevious, at most one returns true.
type Store interface {
	// GetActive returns the subject's record. A missing record yields State == StateNone
	// and a nil error.
	GetActive(ctx context.Context, subjectID string) (Record, error)
	// SetActive makes next the current fingerprint. An empty expectedPrevious starts a
	// new lineage unconditionally; otherwise the swap only happens when the record is
	// active and its current fingerprint equals expectedPrevious.
	SetActive(ctx context.Context, subjectID, next, expectedPrevious string) (bool, error)
	// InvalidateAll revokes the subject's lineage. It is idempotent.
	InvalidateAll(ctx context.Context, subjectID string) error
}

// Fingerprint derives the stored form of a refresh token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
