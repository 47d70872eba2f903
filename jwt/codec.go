package jwt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidSignature means the token was not signed with the expected secret or algorithm.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired means the signature is valid but the token is past its exp claim.
	ErrExpired = errors.New("token expired")
	// ErrMalformed covers everything else: bad encoding, wrong type, wrong issuer, bad claims.
	ErrMalformed = errors.New("token malformed")
)

const minSecretBytes = 16

// Config carries codec settings. Secrets are raw bytes; access and refresh secrets must differ.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	// Now overrides the clock for issuance and verification. Nil means time.Now.
	Now func() time.Time
}

// Codec signs and verifies access and refresh tokens. It is immutable after
// construction and safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if len(cfg.AccessSecret) < minSecretBytes {
		return nil, fmt.Errorf("access secret must be at least %d bytes", minSecretBytes)
	}
	if len(cfg.RefreshSecret) < minSecretBytes {
		return nil, fmt.Errorf("refresh secret must be at least %d bytes", minSecretBytes)
	}
	if bytes.Equal(cfg.AccessSecret, cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cfg.AccessSecret = append([]byte(nil), cfg.AccessSecret...)
	cfg.RefreshSecret = append([]byte(nil), cfg.RefreshSecret...)

	return &Codec{config: cfg}, nil
}

// AccessTTL reports the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

// IssueAccess mints an access token for in and returns it with its expiry.
func (c *Codec) IssueAccess(in AccessInput) (string, time.Time, error) {
	if in.Subject == "" {
		return "", time.Time{}, errors.New("access token requires a subject")
	}

	now := c.config.Now()
	exp := now.Add(c.config.AccessTTL)
	claims := &AccessClaims{
		UID:              in.Subject,
		Type:             TypeAccess,
		Roles:            cloneStrings(in.Roles),
		Permissions:      cloneStrings(in.Permissions),
		MFAVerified:      in.MFAVerified,
		Email:            in.Email,
		Name:             in.Name,
		RegisteredClaims: c.registered(in.Subject, now, exp),
	}

	token, err := c.sign(claims, c.config.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// IssueRefresh mints a refresh token for subject and returns it with its expiry.
func (c *Codec) IssueRefresh(subject string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("refresh token requires a subject")
	}

	now := c.config.Now()
	exp := now.Add(c.config.RefreshTTL)
	claims := &RefreshClaims{
		UID:              subject,
		Type:             TypeRefresh,
		RegisteredClaims: c.registered(subject, now, exp),
	}

	token, err := c.sign(claims, c.config.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// VerifyAccess checks signature, expiry and shape of an access token.
func (c *Codec) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(token, claims, c.config.AccessSecret); err != nil {
		return nil, err
	}
	if err := c.checkIssuedAt(claims.IssuedAt); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks signature, expiry and shape of a refresh token.
func (c *Codec) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(token, claims, c.config.RefreshSecret); err != nil {
		return nil, err
	}
	if err := c.checkIssuedAt(claims.IssuedAt); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Codec) registered(subject string, now, exp time.Time) gjwt.RegisteredClaims {
	return gjwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    c.config.Issuer,
		Subject:   subject,
		IssuedAt:  gjwt.NewNumericDate(now),
		ExpiresAt: gjwt.NewNumericDate(exp),
	}
}

func (c *Codec) sign(claims gjwt.Claims, secret []byte) (string, error) {
	token := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (c *Codec) parse(tokenStr string, claims gjwt.Claims, secret []byte) error {
	if tokenStr == "" {
		return ErrMalformed
	}

	options := []gjwt.ParserOption{
		gjwt.WithValidMethods([]string{gjwt.SigningMethodHS256.Alg()}),
		gjwt.WithExpirationRequired(),
		gjwt.WithTimeFunc(c.config.Now),
	}
	if c.config.Leeway > 0 {
		options = append(options, gjwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, gjwt.WithIssuer(c.config.Issuer))
	}

	parser := gjwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *gjwt.Token) (interface{}, error) {
		if t.Method.Alg() != gjwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return classify(err)
	}
	if !token.Valid {
		return ErrMalformed
	}
	return nil
}

func (c *Codec) checkIssuedAt(iat *gjwt.NumericDate) error {
	if iat == nil {
		return ErrMalformed
	}
	if iat.Time.After(c.config.Now().Add(c.config.MaxFutureIAT)) {
		return fmt.Errorf("%w: iat too far in the future", ErrMalformed)
	}
	return nil
}

// classify folds jwt library errors into the three codec failure kinds. The parser
// verifies the signature before it validates claims, so a forged and expired token
// reports ErrInvalidSignature.
func classify(err error) error {
	switch {
	case errors.Is(err, gjwt.ErrTokenSignatureInvalid),
		errors.Is(err, gjwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, gjwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
