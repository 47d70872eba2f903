package authgate

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvAppEnv             = "APP_ENV"
	EnvAccessTokenSecret  = "ACCESS_TOKEN_SECRET"
	EnvRefreshTokenSecret = "REFRESH_TOKEN_SECRET"
	EnvTokenIssuer        = "TOKEN_ISSUER"
	EnvRedisAddr          = "REDIS_ADDR"
	EnvDatabaseDSN        = "DATABASE_DSN"
	EnvHTTPAddr           = "HTTP_ADDR"
	EnvLogLevel           = "LOG_LEVEL"
)

// Development fallbacks. Never accepted when APP_ENV=production.
const (
	devAccessSecret  = "dev-access-secret-do-not-use-in-production"
	devRefreshSecret = "dev-refresh-secret-do-not-use-in-production"
)

// Environment is the process-level settings surface: the Service Config plus the
// addresses a server binary needs to wire its backends.
type Environment struct {
	Config      Config
	AppEnv      string
	Production  bool
	RedisAddr   string
	DatabaseDSN string
	HTTPAddr    string
	LogLevel    slog.Level
	// UsingDevSecrets is set when either token secret fell back to a development value.
	UsingDevSecrets bool
}

// ConfigFromEnv builds an Environment from DefaultConfig and the process
// environment. A nil lookup reads os.LookupEnv.
//
// In production both token secrets are required; elsewhere missing secrets fall
// back to fixed development values and UsingDevSecrets is set.
func ConfigFromEnv(lookup func(string) (string, bool)) (*Environment, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	env := &Environment{
		Config:      DefaultConfig(),
		AppEnv:      get(EnvAppEnv),
		RedisAddr:   get(EnvRedisAddr),
		DatabaseDSN: get(EnvDatabaseDSN),
		HTTPAddr:    get(EnvHTTPAddr),
		LogLevel:    slog.LevelInfo,
	}
	if env.AppEnv == "" {
		env.AppEnv = "development"
	}
	env.Production = strings.EqualFold(env.AppEnv, "production")
	if env.HTTPAddr == "" {
		env.HTTPAddr = ":8080"
	}

	if lvl := get(EnvLogLevel); lvl != "" {
		if err := env.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
	}

	access := get(EnvAccessTokenSecret)
	refresh := get(EnvRefreshTokenSecret)
	if env.Production {
		if access == "" {
			return nil, fmt.Errorf("%s is required in production", EnvAccessTokenSecret)
		}
		if refresh == "" {
			return nil, fmt.Errorf("%s is required in production", EnvRefreshTokenSecret)
		}
	}
	if access == "" {
		access = devAccessSecret
		env.UsingDevSecrets = true
	}
	if refresh == "" {
		refresh = devRefreshSecret
		env.UsingDevSecrets = true
	}

	cfg := &env.Config
	cfg.JWT.AccessSecret = []byte(access)
	cfg.JWT.RefreshSecret = []byte(refresh)
	if issuer := get(EnvTokenIssuer); issuer != "" {
		cfg.JWT.Issuer = issuer
	}
	cfg.Security.ProductionMode = env.Production
	cfg.Security.VerboseDecisions = !env.Production && env.LogLevel <= slog.LevelDebug
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}
