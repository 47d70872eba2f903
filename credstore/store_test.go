package credstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/rotation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testStore interface {
	authgate.CredentialStore
	authgate.PasswordHashUpdater
	add(t *testing.T, c authgate.Credential) error
	SetActive(ctx context.Context, subjectID string, active bool) error
}

type memoryHarness struct{ *MemoryStore }

func (h memoryHarness) add(_ *testing.T, c authgate.Credential) error { return h.Add(c) }

type bunHarness struct{ *BunStore }

func (h bunHarness) add(_ *testing.T, c authgate.Credential) error {
	return h.Insert(context.Background(), c)
}

func newBunTestStore(t *testing.T) *BunStore {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	store := NewBunStore(db)
	require.NoError(t, store.CreateSchema(context.Background()))
	return store
}

var harnesses = map[string]func(t *testing.T) testStore{
	"memory": func(t *testing.T) testStore {
		s, err := NewMemoryStore()
		require.NoError(t, err)
		return memoryHarness{s}
	},
	"bun": func(t *testing.T) testStore {
		return bunHarness{newBunTestStore(t)}
	},
}

func forEachStore(t *testing.T, fn func(t *testing.T, s testStore)) {
	t.Helper()
	for name, factory := range harnesses {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func alice() authgate.Credential {
	return authgate.Credential{
		SubjectID:    "u-1",
		Email:        "Alice@Example.com",
		Name:         "Alice",
		PasswordHash: "$2a$04$placeholder",
		Roles:        []string{authgate.RoleUser},
		Permissions:  []string{authgate.PermUserRead, authgate.PermUserWrite},
		Active:       true,
	}
}

func TestStoreFindByEmailIgnoresCase(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore) {
		ctx := context.Background()
		require.NoError(t, s.add(t, alice()))

		got, err := s.FindByEmail(ctx, "  alice@EXAMPLE.com ")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u-1", got.SubjectID)
		assert.Equal(t, "Alice", got.Name)
		assert.Equal(t, []string{authgate.RoleUser}, got.Roles)
		assert.Equal(t, []string{authgate.PermUserRead, authgate.PermUserWrite}, got.Permissions)
		assert.True(t, got.Active)

		byID, err := s.FindByID(ctx, "u-1")
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, got.Permissions, byID.Permissions)
	})
}

func TestStoreUnknownAccountIsNil(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore) {
		ctx := context.Background()

		got, err := s.FindByEmail(ctx, "nobody@example.com")
		assert.NoError(t, err)
		assert.Nil(t, got)

		got, err = s.FindByID(ctx, "missing")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestStoreRejectsDuplicateEmail(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore) {
		require.NoError(t, s.add(t, alice()))

		dup := alice()
		dup.SubjectID = "u-2"
		dup.Email = "alice@example.com"
		assert.ErrorIs(t, s.add(t, dup), ErrDuplicateEmail)

		assert.ErrorIs(t, s.add(t, authgate.Credential{SubjectID: "u-3"}), ErrInvalidCredential)
	})
}

func TestStoreMutations(t *testing.T) {
	forEachStore(t, func(t *testing.T, s testStore) {
		ctx := context.Background()
		require.NoError(t, s.add(t, alice()))

		require.NoError(t, s.UpdatePasswordHash(ctx, "u-1", "$argon2id$new"))
		require.NoError(t, s.SetActive(ctx, "u-1", false))

		got, err := s.FindByID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, "$argon2id$new", got.PasswordHash)
		assert.False(t, got.Active)

		assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "missing", "x"), ErrNotFound)
		assert.ErrorIs(t, s.SetActive(ctx, "missing", true), ErrNotFound)
	})
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s, err := NewMemoryStore(alice())
	require.NoError(t, err)

	got, err := s.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	got.Roles[0] = authgate.RoleAdmin

	again, err := s.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, authgate.RoleUser, again.Roles[0])
}

func TestSeedHashesEveryAccount(t *testing.T) {
	var hashed []string
	creds, err := Seed(func(p string) (string, error) {
		hashed = append(hashed, p)
		return "hash:" + p, nil
	}, DevAccounts())
	require.NoError(t, err)

	require.Len(t, creds, 2)
	assert.Equal(t, []string{"password123", "userpass"}, hashed)
	assert.Equal(t, "admin@example.com", creds[0].Email)
	assert.Equal(t, []string{authgate.RoleAdmin, authgate.RoleUser}, creds[0].Roles)
	assert.Equal(t, authgate.PermissionsUserAll(), creds[0].Permissions)
	assert.Equal(t, []string{authgate.PermUserRead}, creds[1].Permissions)
	assert.NotEqual(t, creds[0].SubjectID, creds[1].SubjectID)
	for _, c := range creds {
		assert.True(t, c.Active)
		assert.Equal(t, "hash:", c.PasswordHash[:5])
	}
}

func TestSeededServiceLogin(t *testing.T) {
	cfg := authgate.DefaultConfig()
	cfg.JWT.AccessSecret = []byte("seed-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("seed-refresh-secret-0123456789abcdef")
	cfg.Password.BcryptCost = 4

	forEachStore(t, func(t *testing.T, store testStore) {
		ctx := context.Background()

		svc, err := authgate.New().
			WithConfig(cfg).
			WithCredentialStore(store).
			WithRotationStore(rotation.NewMemoryStore()).
			Build()
		require.NoError(t, err)
		t.Cleanup(svc.Close)

		creds, err := Seed(svc.HashPassword, DevAccounts())
		require.NoError(t, err)
		for _, c := range creds {
			require.NoError(t, store.add(t, c))
		}

		res, err := svc.Login(ctx, "admin@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "Admin User", res.User.Name)
		assert.Equal(t, authgate.PermissionsUserAll(), res.User.Permissions)

		_, err = svc.Login(ctx, "user@example.com", "wrong")
		assert.ErrorIs(t, err, authgate.ErrInvalidCredentials)
	})
}
