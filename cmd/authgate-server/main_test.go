package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/rotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T, vars map[string]string) *authgate.Environment {
	t.Helper()
	env, err := authgate.ConfigFromEnv(func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	})
	require.NoError(t, err)
	env.Config.Password.BcryptCost = 4
	return env
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenBackendsWithoutDatabase(t *testing.T) {
	b, err := openBackends(context.Background(), testEnv(t, nil), discardLogger())
	require.NoError(t, err)
	t.Cleanup(b.close)

	assert.IsType(t, memoryAccounts{}, b.accounts)
	assert.IsType(t, &rotation.RedisStore{}, b.rotation)
}

func TestOpenBackendsDatabaseCarriesRotation(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "auth.db")
	env := testEnv(t, map[string]string{authgate.EnvDatabaseDSN: dsn})
	ctx := context.Background()

	b, err := openBackends(ctx, env, discardLogger())
	require.NoError(t, err)
	t.Cleanup(b.close)

	assert.IsType(t, bunAccounts{}, b.accounts)
	require.IsType(t, &rotation.SQLStore{}, b.rotation)

	svc, err := authgate.New().
		WithConfig(env.Config).
		WithCredentialStore(b.accounts).
		WithRotationStore(b.rotation).
		WithLogger(discardLogger()).
		Build()
	require.NoError(t, err)
	t.Cleanup(svc.Close)

	require.NoError(t, seedAccounts(ctx, svc, b.accounts, discardLogger()))
	require.NoError(t, seedAccounts(ctx, svc, b.accounts, discardLogger()))

	login, err := svc.Login(ctx, "user@example.com", "userpass")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, authgate.ErrTokenReused)
	assert.NoError(t, svc.Health(ctx))
}
