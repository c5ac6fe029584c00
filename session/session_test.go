package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func Test_AppSessionStore_CreateGetRevoke(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	s := NewAppSessionStore(rdb, time.Hour)

	require.NoError(t, s.Create(ctx, "s1", "u1"))
	require.NoError(t, s.Create(ctx, "s2", "u1"))

	as, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", as.UserID)

	require.NoError(t, s.Delete(ctx, "s1"))
	_, err = s.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.RevokeAllForUser(ctx, "u1"))
	_, err = s.Get(ctx, "s2")
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, s.Create(ctx, "s3", "u2"))
	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, "s3")
	assert.ErrorIs(t, err, ErrNoSession)
}

func Test_Store_TakeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	s := NewStore(rdb, time.Minute)

	require.NoError(t, s.Save(ctx, Registration, "alice@uni.edu", &webauthn.SessionData{Challenge: "abc"}))
	sd, err := s.Take(ctx, Registration, "alice@uni.edu")
	require.NoError(t, err)
	assert.Equal(t, "abc", sd.Challenge)

	_, err = s.Take(ctx, Registration, "alice@uni.edu")
	assert.ErrorIs(t, err, redis.Nil)

	// 不同仪式互不干扰
	require.NoError(t, s.Save(ctx, Authorization, "sid", &webauthn.SessionData{Challenge: "xyz"}))
	_, err = s.Load(ctx, InviteSignup, "sid")
	assert.Error(t, err)
}

func Test_Locker_TryLock(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	l := NewLocker(rdb)

	release, ok, err := l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	release()
	_, ok, err = l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// 过期后的旧持有者不能删掉新持有者的锁
	mr.FastForward(2 * time.Minute)
	stale := release
	_, ok, err = l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	stale()
	assert.True(t, mr.Exists("vl:lock:sweep"))
}

func Test_Locker_Once(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	l := NewLocker(rdb)

	first, err := l.Once(ctx, "due:r1:2024-06-01", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := l.Once(ctx, "due:r1:2024-06-01", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, again)

	mr.FastForward(25 * time.Hour)
	later, err := l.Once(ctx, "due:r1:2024-06-01", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, later)
}
