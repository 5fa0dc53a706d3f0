// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package kv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/animeids/internal/platform/kv"
)

type counterStore interface {
	kv.Store
	kv.Counter
}

// runContract exercises the behavior every driver must share.
func runContract(t *testing.T, store counterStore) {
	ctx := context.Background()

	t.Run("get_missing", func(t *testing.T) {
		_, err := store.Get(ctx, "absent")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("put_get_delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "anilist/1", []byte("42"), 0))

		value, err := store.Get(ctx, "anilist/1")
		require.NoError(t, err)
		assert.Equal(t, "42", string(value))

		require.NoError(t, store.Put(ctx, "anilist/1", []byte("43"), time.Minute))
		value, err = store.Get(ctx, "anilist/1")
		require.NoError(t, err)
		assert.Equal(t, "43", string(value))

		require.NoError(t, store.Delete(ctx, "anilist/1"))
		_, err = store.Get(ctx, "anilist/1")
		assert.ErrorIs(t, err, kv.ErrNotFound)

		assert.NoError(t, store.Delete(ctx, "anilist/1"))
	})

	t.Run("increment_below", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			count, admitted, err := store.IncrementBelow(ctx, "rate:user:60", 3, 2*time.Minute)
			require.NoError(t, err)
			assert.True(t, admitted)
			assert.Equal(t, want, count)
		}

		count, admitted, err := store.IncrementBelow(ctx, "rate:user:60", 3, 2*time.Minute)
		require.NoError(t, err)
		assert.False(t, admitted)
		assert.Equal(t, int64(3), count)

		value, err := store.Get(ctx, "rate:user:60")
		require.NoError(t, err)
		assert.Equal(t, "3", string(value))
	})
}

func TestMemoryStore(t *testing.T) {
	runContract(t, kv.NewMemoryStore())
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "auth:abc", []byte("{}"), 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err := store.Get(ctx, "auth:abc")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	assert.NoError(t, kv.Ping(ctx, store))
}

func TestMemoryStore_CounterKeepsWrittenExpiry(t *testing.T) {
	store := kv.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "rate:u:0", []byte("1"), 50*time.Millisecond))

	count, ok, err := store.IncrementBelow(ctx, "rate:u:0", 10, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 2, count)

	time.Sleep(120 * time.Millisecond)

	_, err = store.Get(ctx, "rate:u:0")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestMemoryStore_LoadSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"myanimelist/1": "1",
		"1": {"title": "Cowboy Bebop", "myanimelist": 1},
		"last_updated": "1700000000"
	}`), 0o600))

	store := kv.NewMemoryStore()
	count, err := store.LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	value, err := store.Get(context.Background(), "myanimelist/1")
	require.NoError(t, err)
	assert.Equal(t, "1", string(value))

	value, err = store.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title": "Cowboy Bebop", "myanimelist": 1}`, string(value))
}

func TestRedisStore(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := kv.NewRedisStore(client)
	runContract(t, store)

	t.Run("counter_expiry", func(t *testing.T) {
		ctx := context.Background()
		_, _, err := store.IncrementBelow(ctx, "rate:ttl:0", 10, 2*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Minute, server.TTL("rate:ttl:0"))

		server.FastForward(3 * time.Minute)
		count, admitted, err := store.IncrementBelow(ctx, "rate:ttl:0", 10, 2*time.Minute)
		require.NoError(t, err)
		assert.True(t, admitted)
		assert.Equal(t, int64(1), count)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, kv.Ping(context.Background(), store))
	})
}

// TestPostgresStore runs against a real database when KV_TEST_DATABASE_URL is
// set and the kv_entries migration has been applied.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("KV_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("KV_TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	namespace := "test_" + time.Now().Format("150405.000000")
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM kv_entries WHERE namespace = $1", namespace)
	})

	runContract(t, kv.NewPostgresStore(pool, namespace))
}
