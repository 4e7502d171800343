package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/overlay/domain"
	"github.com/fastygo/overlay/internal/crypt"
	"github.com/fastygo/overlay/repository"
	"github.com/fastygo/overlay/repository/memory"
)

type countingStore struct {
	repository.SessionStore
	gets atomic.Int32
}

func (s *countingStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.gets.Add(1)
	return s.SessionStore.Get(ctx, id)
}

func newCacheForTest(t *testing.T) (*miniredis.Miniredis, *countingStore, *SessionCache) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		m.Close()
	})

	cipher, err := crypt.New("cache-secret")
	require.NoError(t, err)

	backing := &countingStore{SessionStore: memory.NewSessionStore()}
	return m, backing, NewSessionCache(backing, client, cipher, time.Minute, nil)
}

func TestSessionCacheReadThrough(t *testing.T) {
	m, backing, cache := newCacheForTest(t)
	ctx := context.Background()

	created, err := cache.Create(ctx, "42", "firefox", "1.2.3.4")
	require.NoError(t, err)
	require.True(t, m.Exists("session:"+created.ID))

	got, err := cache.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "1.2.3.4", got.IP)
	assert.True(t, created.RefreshedAt.Equal(got.RefreshedAt))
	assert.Equal(t, int32(0), backing.gets.Load(), "served from redis")

	m.FlushAll()
	_, err = cache.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), backing.gets.Load())
	assert.True(t, m.Exists("session:"+created.ID), "repopulated after miss")
}

func TestSessionCacheKeepsIPEncrypted(t *testing.T) {
	m, _, cache := newCacheForTest(t)

	created, err := cache.Create(context.Background(), "42", "firefox", "1.2.3.4")
	require.NoError(t, err)

	raw, err := m.Get("session:" + created.ID)
	require.NoError(t, err)
	assert.NotContains(t, raw, "1.2.3.4")
}

func TestSessionCacheRefreshWritesThrough(t *testing.T) {
	_, backing, cache := newCacheForTest(t)
	ctx := context.Background()

	created, err := cache.Create(ctx, "42", "firefox", "1.2.3.4")
	require.NoError(t, err)

	refreshed, err := cache.Refresh(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.RefreshedAt.After(created.RefreshedAt))

	got, err := cache.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.RefreshedAt.Equal(got.RefreshedAt))
	assert.Equal(t, int32(0), backing.gets.Load())
}

func TestSessionCacheDeleteInvalidates(t *testing.T) {
	m, _, cache := newCacheForTest(t)
	ctx := context.Background()

	created, err := cache.Create(ctx, "42", "firefox", "1.2.3.4")
	require.NoError(t, err)

	require.NoError(t, cache.Delete(ctx, created.ID))
	assert.False(t, m.Exists("session:"+created.ID))

	_, err = cache.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, cache.Delete(ctx, created.ID), domain.ErrSessionNotFound)
}

func TestSessionCacheDeleteOwnedByRespectsOwner(t *testing.T) {
	m, _, cache := newCacheForTest(t)
	ctx := context.Background()

	created, err := cache.Create(ctx, "42", "firefox", "1.2.3.4")
	require.NoError(t, err)

	err = cache.DeleteOwnedBy(ctx, created.ID, "7")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.True(t, m.Exists("session:"+created.ID))

	require.NoError(t, cache.DeleteOwnedBy(ctx, created.ID, "42"))
	assert.False(t, m.Exists("session:"+created.ID))
}

func TestSessionCacheDeleteAllOwnedByExcept(t *testing.T) {
	m, _, cache := newCacheForTest(t)
	ctx := context.Background()

	keep, err := cache.Create(ctx, "42", "firefox", "1.1.1.1")
	require.NoError(t, err)
	drop, err := cache.Create(ctx, "42", "chrome", "2.2.2.2")
	require.NoError(t, err)
	foreign, err := cache.Create(ctx, "7", "safari", "3.3.3.3")
	require.NoError(t, err)

	require.NoError(t, cache.DeleteAllOwnedByExcept(ctx, "42", keep.ID))

	assert.True(t, m.Exists("session:"+keep.ID))
	assert.False(t, m.Exists("session:"+drop.ID))
	assert.True(t, m.Exists("session:"+foreign.ID))

	remaining, err := cache.ListOwnedBy(ctx, "42")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)
}

func TestSessionCacheEntriesExpire(t *testing.T) {
	m, backing, cache := newCacheForTest(t)
	ctx := context.Background()

	created, err := cache.Create(ctx, "42", "firefox", "1.2.3.4")
	require.NoError(t, err)

	m.FastForward(2 * time.Minute)
	assert.False(t, m.Exists("session:"+created.ID))

	_, err = cache.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), backing.gets.Load())
}

func TestSessionCacheFallsBackWhenRedisIsDown(t *testing.T) {
	m, backing, cache := newCacheForTest(t)
	ctx := context.Background()

	created, err := cache.Create(ctx, "42", "firefox", "1.2.3.4")
	require.NoError(t, err)

	m.Close()

	got, err := cache.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, int32(1), backing.gets.Load())
}
