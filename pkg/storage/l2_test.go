package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func setupL2Test(t *testing.T) (*l2Cache, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cache, err := newL2Cache(mr.Addr(), "", 0, "registry-test:")
	require.NoError(t, err)

	return cache, mr, func() {
		cache.Close()
		mr.Close()
	}
}

func TestL2Cache_SetThenGet(t *testing.T) {
	cache, _, cleanup := setupL2Test(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "schemas/1", []byte("payload")))

	data, ok, err := cache.Get(ctx, "schemas/1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "payload", string(data))
}

func TestL2Cache_GetMissReturnsFalseNotError(t *testing.T) {
	cache, _, cleanup := setupL2Test(t)
	defer cleanup()

	_, ok, err := cache.Get(context.Background(), "schemas/missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestL2Cache_SetEXExpires(t *testing.T) {
	cache, mr, cleanup := setupL2Test(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.SetEX(ctx, "schemas/ttl", []byte("x"), 10*time.Millisecond))
	mr.FastForward(30 * time.Millisecond)

	_, ok, err := cache.Get(ctx, "schemas/ttl")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestL2Cache_DelRemovesKey(t *testing.T) {
	cache, _, cleanup := setupL2Test(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "schemas/del", []byte("x")))
	require.NoError(t, cache.Del(ctx, "schemas/del"))

	exists, err := cache.Exists(ctx, "schemas/del")
	require.NoError(t, err)
	require.False(t, exists)
}
