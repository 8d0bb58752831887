package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/songrec/core"
)

func exerciseStore(t *testing.T, s core.KeyValueStore) {
	ctx := context.Background()
	key := "songrec:test:" + t.Name()
	zkey := key + ":z"
	t.Cleanup(func() {
		_ = s.Delete(ctx, key)
		_ = s.Delete(ctx, zkey)
	})

	_, err := s.Get(ctx, key)
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.Set(ctx, key, []byte("v1")))
	v, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.True(t, core.IsStoreNotFound(err))

	require.NoError(t, s.ZAdd(ctx, zkey, 1, "a"))
	require.NoError(t, s.ZAdd(ctx, zkey, 3, "c"))
	require.NoError(t, s.ZAdd(ctx, zkey, 2, "b"))
	members, err := s.ZRange(ctx, zkey, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, members)

	members, err = s.ZRange(ctx, zkey, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, members)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	assert.Equal(t, "memory", s.Name())
	exerciseStore(t, s)
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", []byte("v"), 1))
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	s.mu.Lock()
	e := s.data["k"]
	e.expire = time.Now().Add(-time.Second)
	s.data["k"] = e
	s.mu.Unlock()

	_, err = s.Get(ctx, "k")
	assert.True(t, core.IsStoreNotFound(err))
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	ctx := context.Background()
	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SONGREC_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SONGREC_TEST_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), addr, 15)
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}
