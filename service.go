package authgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/internal/flows"
	internalmetrics "github.com/MrEthical07/authgate/internal/metrics"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/rotation"
)

// Service runs the session lifecycle: login, logout and refresh with rotation and
// reuse detection. Build it with [New]; methods are safe for concurrent use.
type Service struct {
	config      Config
	codec       *jwt.Codec
	credentials CredentialStore
	rotation    rotation.Store
	hasher      *password.Multi
	dummyHash   string
	audit       *internalaudit.Dispatcher
	metrics     *internalmetrics.Metrics
	logger      *slog.Logger
	provider    *TokenIdentityProvider
	closed      atomic.Bool
}

// Close flushes pending audit events. Later calls to Login, Logout and Refresh
// return ErrServiceNotReady.
func (s *Service) Close() {
	if s == nil {
		return
	}
	if s.closed.CompareAndSwap(false, true) {
		s.audit.Close()
	}
}

func (s *Service) ready() bool {
	return s != nil && !s.closed.Load()
}

// AuditDropped reports audit events lost to backpressure.
func (s *Service) AuditDropped() uint64 {
	if s == nil {
		return 0
	}
	return s.audit.Dropped()
}

// MetricsSnapshot returns a copy of the counters.
func (s *Service) MetricsSnapshot() MetricsSnapshot {
	if s == nil || s.metrics == nil {
		return emptySnapshot()
	}
	return s.metrics.Snapshot()
}

// Config returns a copy of the effective configuration.
func (s *Service) Config() Config {
	return cloneConfig(s.config)
}

// IdentityProvider returns the token provider bound to this Service's codec,
// cookie name, logger and metrics.
func (s *Service) IdentityProvider() *TokenIdentityProvider {
	return s.provider
}

// HashPassword hashes with the primary configured scheme.
func (s *Service) HashPassword(plain string) (string, error) {
	return s.hasher.Hash(plain)
}

func (s *Service) metricInc(id MetricID) {
	if s == nil || s.metrics == nil {
		return
	}
	s.metrics.Inc(id)
}

func (s *Service) warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// ObserveDecision records an authorization outcome. With Security.VerboseDecisions
// it also logs the identity's roles and permissions next to the requirement.
func (s *Service) ObserveDecision(ctx context.Context, id *Identity, required Requirement, d Decision) {
	if s == nil {
		return
	}
	switch d {
	case DecisionAllow:
		s.metricInc(MetricAuthzAllow)
	case DecisionDenyUnauthenticated:
		s.metricInc(MetricAuthzDenyUnauthenticated)
	default:
		s.metricInc(MetricAuthzDenyForbidden)
	}

	if !s.config.Security.VerboseDecisions {
		return
	}
	attrs := []slog.Attr{
		slog.String("decision", d.String()),
		slog.Any("required", []string(required)),
	}
	if id != nil {
		attrs = append(attrs,
			slog.String("subject", id.SubjectID),
			slog.Any("roles", id.Roles),
			slog.Any("permissions", id.Permissions),
		)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "authgate: authorization decision", attrs...)
}

// Health pings the rotation store when it supports it.
func (s *Service) Health(ctx context.Context) error {
	if !s.ready() {
		return ErrServiceNotReady
	}
	pinger, ok := s.rotation.(interface {
		Ping(context.Context) (time.Duration, error)
	})
	if !ok {
		return nil
	}
	if _, err := pinger.Ping(ctx); err != nil {
		return storeUnavailable(err)
	}
	return nil
}

// Login authenticates email and password and starts a new refresh lineage for the
// subject. Any previously issued refresh token of that subject stops working.
//
// Unknown email, wrong password and missing input all return ErrInvalidCredentials;
// an inactive account returns ErrAccountDisabled. Backend failures wrap
// ErrStoreUnavailable.
func (s *Service) Login(ctx context.Context, email, plain string) (*LoginResult, error) {
	if !s.ready() {
		return nil, ErrServiceNotReady
	}

	res := flows.RunLogin(ctx, email, plain, flows.LoginDeps{
		FindByEmail: func(ctx context.Context, email string) (*flows.User, error) {
			cred, err := s.credentials.FindByEmail(ctx, email)
			return credentialToUser(cred), err
		},
		VerifyPassword: s.hasher.Verify,
		NeedsRehash:    s.hasher.NeedsUpgrade,
		DummyHash:      s.dummyHash,
		IssueAccess:    s.issueAccess,
		IssueRefresh:   s.codec.IssueRefresh,
		Rotation:       s.rotation,
		Warn:           s.warn,
	})

	subject := ""
	if res.User != nil {
		subject = res.User.SubjectID
	}

	switch res.Failure {
	case flows.LoginFailureNone:
	case flows.LoginFailureMissingInput:
		return nil, s.loginFailed(ctx, subject, ErrInvalidCredentials, "missing_input")
	case flows.LoginFailureUnknownUser:
		return nil, s.loginFailed(ctx, subject, ErrInvalidCredentials, "unknown_user")
	case flows.LoginFailurePassword:
		return nil, s.loginFailed(ctx, subject, ErrInvalidCredentials, "password_mismatch")
	case flows.LoginFailureDisabled:
		s.metricInc(MetricLoginDisabled)
		return nil, s.loginFailed(ctx, subject, ErrAccountDisabled, "account_disabled")
	case flows.LoginFailureLookup, flows.LoginFailureRotation:
		s.metricInc(MetricStoreUnavailable)
		return nil, s.loginFailed(ctx, subject, storeUnavailable(res.Err), "backend_unavailable")
	default:
		return nil, s.loginFailed(ctx, subject, fmt.Errorf("issue tokens: %w", res.Err), "issue_failed")
	}

	if res.NeedsRehash && s.config.Password.UpgradeOnLogin {
		s.upgradeHash(ctx, res.User.SubjectID, plain)
	}

	s.metricInc(MetricLoginSuccess)
	s.emitAudit(ctx, auditEventLoginSuccess, true, subject, nil, nil)

	return &LoginResult{
		TokenPair: tokenPair(res.Tokens),
		User:      userInfo(res.User),
	}, nil
}

func (s *Service) loginFailed(ctx context.Context, subject string, err error, why string) error {
	s.metricInc(MetricLoginFailure)
	s.emitAudit(ctx, auditEventLoginFailure, false, subject, err, reason(why))
	return err
}

func (s *Service) upgradeHash(ctx context.Context, subject, plain string) {
	updater, ok := s.credentials.(PasswordHashUpdater)
	if !ok {
		return
	}
	upgraded, err := s.hasher.Hash(plain)
	if err != nil {
		s.warn("authgate: password hash upgrade generation failed", "subject", subject, "error", err)
		return
	}
	if err := updater.UpdatePasswordHash(ctx, subject, upgraded); err != nil {
		s.warn("authgate: password hash upgrade update failed", "subject", subject, "error", err)
	}
}

// Logout invalidates the subject's refresh lineage. Logging out twice, or a subject
// that never logged in, is not an error. Access tokens already issued stay valid
// until they expire.
func (s *Service) Logout(ctx context.Context, subjectID string) error {
	if !s.ready() {
		return ErrServiceNotReady
	}
	if subjectID == "" {
		return ErrUnauthenticated
	}

	if err := flows.RunLogout(ctx, subjectID, flows.LogoutDeps{Rotation: s.rotation}); err != nil {
		s.metricInc(MetricStoreUnavailable)
		err = storeUnavailable(err)
		s.emitAudit(ctx, auditEventLogout, false, subjectID, err, nil)
		return err
	}

	s.metricInc(MetricLogout)
	s.emitAudit(ctx, auditEventLogout, true, subjectID, nil, nil)
	return nil
}

// Refresh exchanges a refresh token for a new pair. Roles and permissions are
// reloaded from the credential store, never copied from the old token.
//
// Exactly one of several concurrent calls presenting the same token succeeds; the
// others return ErrTokenReused. With Rotation.RevokeLineageOnReuse the lineage is
// invalidated on reuse, so the winner's new refresh token stops working too.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !s.ready() {
		return nil, ErrServiceNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, flows.RefreshDeps{
		VerifyRefresh: s.verifyRefresh,
		FindByID: func(ctx context.Context, id string) (*flows.User, error) {
			cred, err := s.credentials.FindByID(ctx, id)
			return credentialToUser(cred), err
		},
		IssueAccess:          s.issueAccess,
		IssueRefresh:         s.codec.IssueRefresh,
		Rotation:             s.rotation,
		RevokeLineageOnReuse: s.config.Rotation.RevokeLineageOnReuse,
		Warn:                 s.warn,
	})

	if res.LineageRevoked {
		s.metricInc(MetricLineageInvalidated)
		s.emitAudit(ctx, auditEventLineageInvalidated, true, res.SubjectID, nil, func() map[string]string {
			return map[string]string{"trigger": refreshFailureName(res.Failure)}
		})
	}

	switch res.Failure {
	case flows.RefreshFailureNone:
		s.metricInc(MetricRefreshSuccess)
		s.emitAudit(ctx, auditEventRefreshSuccess, true, res.SubjectID, nil, nil)
		pair := tokenPair(res.Tokens)
		return &pair, nil
	case flows.RefreshFailureMissing:
		return nil, s.refreshFailed(ctx, res, ErrTokenMissing)
	case flows.RefreshFailureVerify:
		return nil, s.refreshFailed(ctx, res, fmt.Errorf("%w: %w", ErrTokenInvalid, res.Err))
	case flows.RefreshFailureInactive:
		return nil, s.refreshFailed(ctx, res, ErrUserInactive)
	case flows.RefreshFailureReuse:
		s.metricInc(MetricRefreshFailure)
		s.metricInc(MetricRefreshReuseDetected)
		s.emitAudit(ctx, auditEventRefreshReuseDetected, false, res.SubjectID, ErrTokenReused, func() map[string]string {
			return map[string]string{
				"observed":        res.Observed.String(),
				"lineage_revoked": fmt.Sprint(res.LineageRevoked),
			}
		})
		return nil, ErrTokenReused
	case flows.RefreshFailureLookup, flows.RefreshFailureRotation:
		s.metricInc(MetricStoreUnavailable)
		return nil, s.refreshFailed(ctx, res, storeUnavailable(res.Err))
	default:
		return nil, s.refreshFailed(ctx, res, fmt.Errorf("issue tokens: %w", res.Err))
	}
}

func (s *Service) refreshFailed(ctx context.Context, res flows.RefreshResult, err error) error {
	s.metricInc(MetricRefreshFailure)
	s.emitAudit(ctx, auditEventRefreshInvalid, false, res.SubjectID, err, reason(refreshFailureName(res.Failure)))
	return err
}

func refreshFailureName(kind flows.RefreshFailureKind) string {
	switch kind {
	case flows.RefreshFailureMissing:
		return "missing"
	case flows.RefreshFailureVerify:
		return "verify_failed"
	case flows.RefreshFailureLookup:
		return "lookup_failed"
	case flows.RefreshFailureInactive:
		return "user_inactive"
	case flows.RefreshFailureReuse:
		return "reuse"
	case flows.RefreshFailureRotation:
		return "rotation_failed"
	case flows.RefreshFailureIssue:
		return "issue_failed"
	default:
		return "none"
	}
}

func (s *Service) verifyRefresh(token string) (string, error) {
	claims, err := s.codec.VerifyRefresh(token)
	if err != nil {
		return "", err
	}
	return claims.UID, nil
}

func (s *Service) issueAccess(u *flows.User) (string, time.Time, error) {
	return s.codec.IssueAccess(jwt.AccessInput{
		Subject:     u.SubjectID,
		Roles:       u.Roles,
		Permissions: u.Permissions,
		MFAVerified: u.MFAVerified,
		Email:       u.Email,
		Name:        u.Name,
	})
}

func storeUnavailable(err error) error {
	if err == nil {
		return ErrStoreUnavailable
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func credentialToUser(c *Credential) *flows.User {
	if c == nil {
		return nil
	}
	return &flows.User{
		SubjectID:    c.SubjectID,
		Email:        c.Email,
		Name:         c.Name,
		PasswordHash: c.PasswordHash,
		Roles:        c.Roles,
		Permissions:  c.Permissions,
		Active:       c.Active,
		MFAVerified:  c.MFAVerified,
	}
}

func userInfo(u *flows.User) UserInfo {
	return UserInfo{
		ID:          u.SubjectID,
		Email:       u.Email,
		Name:        u.Name,
		Roles:       append([]string(nil), u.Roles...),
		Permissions: append([]string(nil), u.Permissions...),
		MFAVerified: u.MFAVerified,
	}
}

func tokenPair(t flows.Tokens) TokenPair {
	return TokenPair{
		AccessToken:      t.AccessToken,
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshToken:     t.RefreshToken,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}
