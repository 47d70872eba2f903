// Command authgate-server runs the authgate HTTP endpoints configured from the
// environment.
//
// With REDIS_ADDR rotation records live in Redis. With DATABASE_DSN accounts live
// in SQLite through bun, and so do rotation records unless REDIS_ADDR is also set.
// With neither, accounts are kept in memory and rotation uses an embedded miniredis.
// Outside production the development accounts are seeded on start.
//
//	APP_ENV=development go run ./cmd/authgate-server
//
//	curl -i -c jar.txt -X POST localhost:8080/auth/login \
//	  -H 'Content-Type: application/json' \
//	  -d '{"email":"admin@example.com","password":"password123"}'
//	curl -i -b jar.txt localhost:8080/auth/me
//	curl -i -b jar.txt -c jar.txt -X POST localhost:8080/auth/refresh
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/credstore"
	"github.com/MrEthical07/authgate/metrics/export/prometheus"
	"github.com/MrEthical07/authgate/middleware"
	"github.com/MrEthical07/authgate/rotation"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type accountStore interface {
	authgate.CredentialStore
	authgate.PasswordHashUpdater
	add(ctx context.Context, c authgate.Credential) error
}

type memoryAccounts struct{ *credstore.MemoryStore }

func (m memoryAccounts) add(_ context.Context, c authgate.Credential) error { return m.Add(c) }

type bunAccounts struct{ *credstore.BunStore }

func (b bunAccounts) add(ctx context.Context, c authgate.Credential) error { return b.Insert(ctx, c) }

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "authgate-server:", err)
		os.Exit(1)
	}
}

func run() error {
	env, err := authgate.ConfigFromEnv(nil)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: env.LogLevel}))
	if env.UsingDevSecrets {
		logger.Warn("using development token secrets", slog.String("app_env", env.AppEnv))
	}

	ctx := context.Background()

	b, err := openBackends(ctx, env, logger)
	if err != nil {
		return err
	}
	defer b.close()

	svc, err := authgate.New().
		WithConfig(env.Config).
		WithCredentialStore(b.accounts).
		WithRotationStore(b.rotation).
		WithAuditSink(authgate.NewLogSink(logger)).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer svc.Close()

	if !env.Production {
		if err := seedAccounts(ctx, svc, b.accounts, logger); err != nil {
			return err
		}
	}

	logger.Info("authgate security report", slog.Any("report", svc.SecurityReport()))

	registry := authgate.NewProviderRegistry(svc.IdentityProvider())
	registry.MustGet()
	gate := middleware.NewGate(registry, svc)

	mux := http.NewServeMux()
	middleware.NewHandlers(svc, gate, logger).Register(mux)

	mux.Handle("GET /metrics", prometheus.NewExporter(svc).Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Health(r.Context()); err != nil {
			logger.Warn("health check failed", slog.String("error", err.Error()))
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /users", gate.Require(authgate.PermUserRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.CurrentIdentity(r, registry)
		_, _ = fmt.Fprintf(w, "users visible to %s\n", id.SubjectID)
	})))
	mux.Handle("DELETE /users/{id}", gate.Require(authgate.RoleAdmin, authgate.PermUserDelete)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, "user %s deleted\n", r.PathValue("id"))
	})))

	srv := &http.Server{
		Addr:              env.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	logger.Info("listening", slog.String("addr", env.HTTPAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type backends struct {
	accounts accountStore
	rotation rotation.Store
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackends picks the account and rotation stores. A SQL database carries
// rotation records too unless an external Redis is configured.
func openBackends(ctx context.Context, env *authgate.Environment, logger *slog.Logger) (*backends, error) {
	b := &backends{}

	var db *bun.DB
	if env.DatabaseDSN == "" {
		store, err := credstore.NewMemoryStore()
		if err != nil {
			return nil, err
		}
		logger.Info("using in-memory accounts")
		b.accounts = memoryAccounts{store}
	} else {
		var err error
		db, err = openDatabase(env.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = db.Close() })
		store := credstore.NewBunStore(db)
		if err := store.CreateSchema(ctx); err != nil {
			b.close()
			return nil, err
		}
		logger.Info("using sqlite accounts", slog.String("dsn", env.DatabaseDSN))
		b.accounts = bunAccounts{store}
	}

	if db != nil && env.RedisAddr == "" {
		store := rotation.NewSQLStore(db, env.Config.JWT.RefreshTTL)
		if err := store.CreateSchema(ctx); err != nil {
			b.close()
			return nil, err
		}
		logger.Info("using sqlite rotation records")
		b.rotation = store
		return b, nil
	}

	rdb, closeRedis, err := openRedis(env.RedisAddr, logger)
	if err != nil {
		b.close()
		return nil, err
	}
	b.closers = append(b.closers, closeRedis)
	b.rotation = rotation.NewRedisStore(rdb, env.Config.Rotation.RedisPrefix, env.Config.JWT.RefreshTTL)
	return b, nil
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func openRedis(addr string, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info("using redis", slog.String("addr", addr))
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Info("using embedded miniredis", slog.String("addr", mr.Addr()))
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func seedAccounts(ctx context.Context, svc *authgate.Service, accounts accountStore, logger *slog.Logger) error {
	var pending []credstore.DevAccount
	for _, a := range credstore.DevAccounts() {
		existing, err := accounts.FindByEmail(ctx, a.Email)
		if err != nil {
			return fmt.Errorf("look up seed account: %w", err)
		}
		if existing == nil {
			pending = append(pending, a)
		}
	}

	creds, err := credstore.Seed(svc.HashPassword, pending)
	if err != nil {
		return err
	}
	for _, c := range creds {
		if err := accounts.add(ctx, c); err != nil {
			return fmt.Errorf("seed %s: %w", c.Email, err)
		}
		logger.Info("seeded development account", slog.String("email", c.Email), slog.String("subject", c.SubjectID))
	}
	return nil
}
