package authgate

import (
	"errors"
	"fmt"
	"log/slog"

	internalaudit "github.com/MrEthical07/authgate/internal/audit"
	"github.com/MrEthical07/authgate/jwt"
	"github.com/MrEthical07/authgate/password"
	"github.com/MrEthical07/authgate/rotation"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Builder assembles a Service. It is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials CredentialStore
	rotation    rotation.Store
	auditSink   AuditSink
	logger      *slog.Logger

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCredentialStore sets the account lookup backend. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithRotationStore sets the lineage backend. It takes precedence over WithRedis.
func (b *Builder) WithRotationStore(store rotation.Store) *Builder {
	b.rotation = store
	return b
}

// WithRedis makes Build create a Redis lineage store keyed under
// Rotation.RedisPrefix with a TTL of JWT.RefreshTTL.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the audit destination. Events only flow when Audit.Enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for warnings and verbose decisions. Nil discards.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithMetricsEnabled toggles counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Service.
func (b *Builder) Build() (*Service, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}

	store := b.rotation
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("rotation store or redis client required")
		}
		store = rotation.NewRedisStore(b.redis, cfg.Rotation.RedisPrefix, cfg.JWT.RefreshTTL)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	codec, err := jwt.NewCodec(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		MaxFutureIAT:  cfg.JWT.MaxFutureIAT,
	})
	if err != nil {
		return nil, err
	}

	hasher, err := newHasher(cfg)
	if err != nil {
		return nil, err
	}

	// Unknown and disabled accounts compare against this so every failure path costs
	// one hash comparison.
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("derive dummy hash: %w", err)
	}

	svc := &Service{
		config:      cfg,
		codec:       codec,
		credentials: b.credentials,
		rotation:    store,
		hasher:      hasher,
		dummyHash:   dummy,
		logger:      logger,
		metrics:     newMetrics(cfg.Metrics),
	}
	svc.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	provider := NewTokenIdentityProvider(codec, cfg.Cookie.AccessName, logger)
	provider.metrics = svc.metrics
	svc.provider = provider

	b.built = true

	return svc, nil
}

func newHasher(cfg Config) (*password.Multi, error) {
	bc, err := password.NewBcrypt(cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}
	a2, err := password.NewArgon2(cfg.argon2Config())
	if err != nil {
		return nil, err
	}
	if cfg.Password.Scheme == "argon2" {
		return password.NewMulti(a2, bc), nil
	}
	return password.NewMulti(bc, a2), nil
}
