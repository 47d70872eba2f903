package authgate

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
)

// Identity is the per-request view of an authenticated caller. It is built by an
// IdentityProvider and never persisted.
type Identity struct {
	SubjectID     string
	Roles         []string
	Permissions   []string
	Authenticated bool
	MFAVerified   bool
	Metadata      map[string]any
}

// Email returns the "email" metadata entry, or "".
func (i *Identity) Email() string {
	return i.metaString("email")
}

// Name returns the "name" metadata entry, or "".
func (i *Identity) Name() string {
	return i.metaString("name")
}

func (i *Identity) metaString(key string) string {
	if i == nil || i.Metadata == nil {
		return ""
	}
	v, _ := i.Metadata[key].(string)
	return v
}

// IdentityProvider resolves the caller of an HTTP request. It returns nil for missing
// or invalid credentials and never fails otherwise.
type IdentityProvider interface {
	GetUser(r *http.Request) *Identity
}

// Credential is a stored account as seen by the service.
type Credential struct {
	SubjectID    string
	Email        string
	Name         string
	PasswordHash string
	Roles        []string
	Permissions  []string
	Active       bool
	MFAVerified  bool
}

// CredentialStore looks up accounts. Both methods return (nil, nil) when the account
// does not exist; errors are reserved for backend failures.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Credential, error)
	FindByID(ctx context.Context, subjectID string) (*Credential, error)
}

// PasswordHashUpdater is optionally implemented by a CredentialStore that accepts
// re-encoded hashes after a successful login.
type PasswordHashUpdater interface {
	UpdatePasswordHash(ctx context.Context, subjectID, newHash string) error
}

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// UserInfo is the client-facing projection of an account. It never carries the hash.
type UserInfo struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	MFAVerified bool     `json:"mfaVerified"`
}

// UserInfoFromIdentity projects a resolved identity.
func UserInfoFromIdentity(id *Identity) UserInfo {
	if id == nil {
		return UserInfo{}
	}
	return UserInfo{
		ID:          id.SubjectID,
		Email:       id.Email(),
		Name:        id.Name(),
		Roles:       slices.Clone(id.Roles),
		Permissions: slices.Clone(id.Permissions),
		MFAVerified: id.MFAVerified,
	}
}

// LoginResult is returned by a successful Service.Login.
type LoginResult struct {
	TokenPair
	User UserInfo
}

// AuditEvent is one audit record emitted by the Service.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink discards audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink writes audit events through a slog.Logger.
type LogSink = internalaudit.LogSink

// NewChannelSink returns a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a JSONWriterSink writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogSink returns a LogSink. A nil logger selects slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	return internalaudit.NewLogSink(logger)
}
