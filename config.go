package authgate

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/authgate/password"
	"golang.org/x/crypto/bcrypt"
)

// Config is the complete Service configuration. Build it once at startup; the
// Builder stores a private copy.
type Config struct {
	JWT      JWTConfig
	Cookie   CookieConfig
	Rotation RotationConfig
	Password PasswordConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token signing. Access and refresh tokens use different
// HS256 secrets so neither class can be replayed as the other.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig names and scopes the two token cookies.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Path        string
	Domain      string
	SameSite    http.SameSite
}

/*
====================================
ROTATION CONFIG
====================================
*/

// RotationConfig controls refresh lineage bookkeeping.
type RotationConfig struct {
	// RedisPrefix namespaces lineage keys when the Builder creates a Redis store.
	RedisPrefix string
	// RevokeLineageOnReuse invalidates the whole lineage, including the newest
	// token, when a rotated token is presented again.
	RevokeLineageOnReuse bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the primary hashing scheme. Hashes of the other scheme
// are still verified and, with UpgradeOnLogin, re-encoded on successful login.
type PasswordConfig struct {
	Scheme      string // "bcrypt" (default) or "argon2"
	BcryptCost  int
	Memory      uint32 // argon2, in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MinPasswordBytes is the shortest password argon2 will hash. Zero selects 10.
	MinPasswordBytes int
	UpgradeOnLogin   bool
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the verify latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds deployment posture switches.
type SecurityConfig struct {
	ProductionMode       bool
	RequireSecureCookies bool
	// VerboseDecisions logs every authorization decision with the identity's roles
	// and permissions. Rejected in production.
	VerboseDecisions bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns development defaults. Secrets are left empty and must be
// supplied before Build.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:    15 * time.Minute,
			RefreshTTL:   7 * 24 * time.Hour,
			Issuer:       "authgate",
			MaxFutureIAT: 10 * time.Minute,
		},
		Cookie: CookieConfig{
			AccessName:  "auth_token",
			RefreshName: "refresh_token",
			Path:        "/",
			SameSite:    http.SameSiteStrictMode,
		},
		Rotation: RotationConfig{
			RedisPrefix:          "ag",
			RevokeLineageOnReuse: true,
		},
		Password: PasswordConfig{
			Scheme:           "bcrypt",
			BcryptCost:       bcrypt.DefaultCost,
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MinPasswordBytes: 8,
			UpgradeOnLogin:   true,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:       false,
			RequireSecureCookies: false,
			VerboseDecisions:     false,
		},
	}
}

// SecureCookies reports whether token cookies carry the Secure attribute.
func (c Config) SecureCookies() bool {
	return c.Security.ProductionMode || c.Security.RequireSecureCookies
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

const minSecretBytes = 16

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret is required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT RefreshSecret is required")
	}
	if len(c.JWT.AccessSecret) < minSecretBytes || len(c.JWT.RefreshSecret) < minSecretBytes {
		return fmt.Errorf("JWT secrets must be at least %d bytes", minSecretBytes)
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}
	if c.JWT.MaxFutureIAT < 0 || c.JWT.MaxFutureIAT > 24*time.Hour {
		return errors.New("JWT MaxFutureIAT must be within [0, 24h]")
	}
	if strings.TrimSpace(c.JWT.Issuer) != c.JWT.Issuer {
		return errors.New("JWT Issuer must not have surrounding whitespace")
	}

	// Cookie
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("Cookie names must be set")
	}
	if c.Cookie.AccessName == c.Cookie.RefreshName {
		return errors.New("Cookie AccessName and RefreshName must differ")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.SecureCookies() {
		return errors.New("Cookie SameSite=None requires secure cookies")
	}

	// Rotation
	if strings.TrimSpace(c.Rotation.RedisPrefix) == "" {
		return errors.New("Rotation RedisPrefix must be set")
	}

	// Password
	if c.Password.Scheme != "bcrypt" && c.Password.Scheme != "argon2" {
		return errors.New("Password Scheme must be 'bcrypt' or 'argon2'")
	}
	if c.Password.BcryptCost != 0 && (c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("Password BcryptCost must be within [%d,%d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if _, err := password.NewArgon2(c.argon2Config()); err != nil {
		return fmt.Errorf("Password argon2 parameters: %w", err)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Security
	if c.Security.ProductionMode && c.Security.VerboseDecisions {
		return errors.New("Security VerboseDecisions is not allowed in production mode")
	}

	return nil
}

func (c *Config) argon2Config() password.Argon2Config {
	return password.Argon2Config{
		Memory:      c.Password.Memory,
		Time:        c.Password.Time,
		Parallelism: c.Password.Parallelism,
		SaltLength:  c.Password.SaltLength,
		KeyLength:   c.Password.KeyLength,

		MinPasswordBytes: c.Password.MinPasswordBytes,
	}
}
