package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
	"github.com/lk2023060901/wirecodec/pkg/wire"
)

type profile = wire.Tuple2[wire.Str, wire.Seq[wire.U32]]

func newTestStore(t *testing.T, cfg wire.Config) (*Store, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	store, err := Open(context.Background(), Options{Addr: server.Addr(), Prefix: "test:", Config: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, server
}

func TestPutGet(t *testing.T) {
	store, server := newTestStore(t, wire.DefaultConfig())
	ctx := context.Background()

	v := profile{First: "alice", Second: wire.Seq[wire.U32]{1, 2, 3}}
	require.NoError(t, store.Put(ctx, "alice", v, 0))

	// 值以 wire 编码保存，key 带前缀。
	raw, err := server.Get("test:alice")
	require.NoError(t, err)
	expected, err := wire.Encode(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, string(expected), raw)

	var out profile
	require.NoError(t, store.Get(ctx, "alice", &out))
	assert.Equal(t, v, out)

	ok, err := store.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetMissingKey(t *testing.T) {
	store, _ := newTestStore(t, wire.DefaultConfig())
	var out wire.U64
	err := store.Get(context.Background(), "nobody", &out)
	assert.ErrorIs(t, err, merr.ErrIoKeyNotFound)
	assert.Contains(t, err.Error(), "nobody")
}

func TestGetCorruptValue(t *testing.T) {
	store, server := newTestStore(t, wire.DefaultConfig())
	require.NoError(t, server.Set("test:short", "\x01\x02"))

	var out wire.U64
	err := store.Get(context.Background(), "short", &out)
	assert.ErrorIs(t, err, merr.ErrIo)
}

func TestPutTTL(t *testing.T) {
	store, server := newTestStore(t, wire.DefaultConfig())
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "temp", wire.Str("x"), time.Minute))
	assert.Equal(t, time.Minute, server.TTL("test:temp"))

	server.FastForward(2 * time.Minute)
	ok, err := store.Exists(ctx, "temp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMulti(t *testing.T) {
	store, server := newTestStore(t, wire.DefaultConfig().WithEndian(wire.BigEndian))
	ctx := context.Background()

	keys := []string{"a", "b", "c"}
	values := []wire.Encoder{wire.I32(-1), wire.I32(2), wire.I32(3)}
	require.NoError(t, store.PutMulti(ctx, keys, values, time.Hour))
	assert.Equal(t, time.Hour, server.TTL("test:b"))

	got, err := GetMulti[wire.I32](ctx, store, []string{"a", "missing", "c"})
	require.NoError(t, err)
	assert.Equal(t, map[string]wire.I32{"a": -1, "c": 3}, got)

	n, err := store.Delete(ctx, "a", "b", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err = GetMulti[wire.I32](ctx, store, keys)
	require.NoError(t, err)
	assert.Equal(t, map[string]wire.I32{"c": 3}, got)

	err = store.PutMulti(ctx, keys, values[:1], 0)
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
	require.NoError(t, store.PutMulti(ctx, nil, nil, 0))
}

func TestOpenUnavailable(t *testing.T) {
	server := miniredis.RunT(t)
	addr := server.Addr()
	server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := Open(ctx, Options{Addr: addr})
	assert.ErrorIs(t, err, merr.ErrServiceUnavailable)

	_, err = Open(ctx, Options{})
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
	_, err = New((*redis.Client)(nil), "", wire.DefaultConfig())
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)
}
