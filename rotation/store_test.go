package rotation

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type storeFactory func(t *testing.T) Store

func newRedisTestStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "test", time.Hour)
}

func newSQLTestStore(t *testing.T) Store {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	store := NewSQLStore(db, time.Hour)
	require.NoError(t, store.CreateSchema(context.Background()))
	return store
}

func newMemoryTestStore(t *testing.T) Store {
	t.Helper()
	return NewMemoryStore()
}

var adapters = map[string]storeFactory{
	"redis":  newRedisTestStore,
	"sql":    newSQLTestStore,
	"memory": newMemoryTestStore,
}

func forEachAdapter(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Helper()
	for name, factory := range adapters {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestGetActiveMissingSubject(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		rec, err := store.GetActive(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Equal(t, StateNone, rec.State)
		assert.Equal(t, StateNone, rec.Classify(Fingerprint("anything")))
	})
}

func TestSetActiveStartsLineage(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		fp := Fingerprint("token-1")

		ok, err := store.SetActive(ctx, "u-1", fp, "")
		require.NoError(t, err)
		require.True(t, ok)

		rec, err := store.GetActive(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, StateActive, rec.State)
		assert.Equal(t, fp, rec.Current)
		assert.Equal(t, StateActive, rec.Classify(fp))
		assert.False(t, rec.UpdatedAt.IsZero())
	})
}

func TestSetActiveRotatesOnMatch(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		first := Fingerprint("token-1")
		second := Fingerprint("token-2")

		_, err := store.SetActive(ctx, "u-1", first, "")
		require.NoError(t, err)

		ok, err := store.SetActive(ctx, "u-1", second, first)
		require.NoError(t, err)
		require.True(t, ok)

		rec, err := store.GetActive(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, second, rec.Current)
		assert.Equal(t, first, rec.Previous)
		assert.Equal(t, StateActive, rec.Classify(second))
		assert.Equal(t, StateRotated, rec.Classify(first))
	})
}

func TestSetActiveRejectsStaleExpected(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		first := Fingerprint("token-1")
		second := Fingerprint("token-2")

		_, err := store.SetActive(ctx, "u-1", first, "")
		require.NoError(t, err)
		_, err = store.SetActive(ctx, "u-1", second, first)
		require.NoError(t, err)

		ok, err := store.SetActive(ctx, "u-1", Fingerprint("token-3"), first)
		require.NoError(t, err)
		assert.False(t, ok)

		rec, err := store.GetActive(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, second, rec.Current)
	})
}

func TestSetActiveRejectsWithoutLineage(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		ok, err := store.SetActive(context.Background(), "u-1", Fingerprint("b"), Fingerprint("a"))
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestInvalidateAllBlocksRotation(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		first := Fingerprint("token-1")

		_, err := store.SetActive(ctx, "u-1", first, "")
		require.NoError(t, err)
		require.NoError(t, store.InvalidateAll(ctx, "u-1"))

		rec, err := store.GetActive(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, StateInvalidated, rec.State)
		assert.Equal(t, StateInvalidated, rec.Classify(first))

		ok, err := store.SetActive(ctx, "u-1", Fingerprint("token-2"), first)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestInvalidateAllIdempotent(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		require.NoError(t, store.InvalidateAll(ctx, "u-1"))
		require.NoError(t, store.InvalidateAll(ctx, "u-1"))

		rec, err := store.GetActive(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, StateInvalidated, rec.State)
	})
}

func TestLoginAfterInvalidateStartsFreshLineage(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		require.NoError(t, store.InvalidateAll(ctx, "u-1"))

		fp := Fingerprint("token-new")
		ok, err := store.SetActive(ctx, "u-1", fp, "")
		require.NoError(t, err)
		require.True(t, ok)

		rec, err := store.GetActive(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, StateActive, rec.Classify(fp))
	})
}

func TestEmptySubjectRejected(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		_, err := store.GetActive(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidSubject)
		_, err = store.SetActive(ctx, "", "x", "")
		assert.ErrorIs(t, err, ErrInvalidSubject)
		assert.ErrorIs(t, store.InvalidateAll(ctx, ""), ErrInvalidSubject)
	})
}

func TestSetActiveSingleWinner(t *testing.T) {
	forEachAdapter(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		seed := Fingerprint("seed")
		_, err := store.SetActive(ctx, "u-1", seed, "")
		require.NoError(t, err)

		const workers = 16
		var (
			wg      sync.WaitGroup
			winners atomic.Int32
			start   = make(chan struct{})
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				ok, err := store.SetActive(ctx, "u-1", Fingerprint("next-"+string(rune('a'+i))), seed)
				if err == nil && ok {
					winners.Add(1)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
	})
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("refresh-token")
	assert.Equal(t, a, Fingerprint("refresh-token"))
	assert.NotEqual(t, a, Fingerprint("refresh-token2"))
	assert.Len(t, a, 64)
}

func TestStateString(t *testing.T) {
	for _, s := range []State{StateNone, StateActive, StateRotated, StateInvalidated} {
		assert.Equal(t, s, parseState(s.String()))
	}
	assert.Equal(t, "unknown", State(42).String())
}

func TestRedisStoreSetsTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, "ttl", time.Hour)
	_, err := store.SetActive(context.Background(), "u-1", Fingerprint("a"), "")
	require.NoError(t, err)

	assert.Equal(t, time.Hour, mr.TTL("ttl:rt:u-1"))

	mr.FastForward(2 * time.Hour)
	rec, err := store.GetActive(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, StateNone, rec.State)
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	store := NewRedisStore(rdb, "down", time.Hour)
	mr.Close()

	_, err = store.GetActive(context.Background(), "u-1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = store.SetActive(context.Background(), "u-1", "fp", "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, store.InvalidateAll(context.Background(), "u-1"), ErrStoreUnavailable)
}

func TestSQLStoreExpiredRowReadsAbsent(t *testing.T) {
	store := newSQLTestStore(t).(*SQLStore)
	ctx := context.Background()

	_, err := store.SetActive(ctx, "u-1", Fingerprint("a"), "")
	require.NoError(t, err)

	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	rec, err := store.GetActive(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, StateNone, rec.State)

	ok, err := store.SetActive(ctx, "u-1", Fingerprint("b"), Fingerprint("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}
