package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestMemoryStore_IncrAndExpire(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStoreWithClock(clock.Now)

	_, found, err := s.Get(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, found)

	b, err := s.Incr(ctx, "ip:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Count)
	assert.True(t, b.ResetAt.IsZero())

	require.NoError(t, s.Expire(ctx, "ip:1", time.Minute))

	b, err = s.Incr(ctx, "ip:1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Count)
	assert.Equal(t, clock.t.Add(time.Minute), b.ResetAt)

	got, found, err := s.Get(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), got.Count)

	clock.Advance(time.Minute)
	_, found, err = s.Get(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, found, "window includes its reset instant")

	clock.Advance(time.Nanosecond)
	_, found, err = s.Get(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, found)

	b, err = s.Incr(ctx, "ip:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Count)
}

func TestBucket_Expired(t *testing.T) {
	resetAt := time.Unix(1_700_000_060, 0)
	b := Bucket{Count: 3, ResetAt: resetAt}

	assert.False(t, b.Expired(resetAt.Add(-time.Second)))
	assert.False(t, b.Expired(resetAt))
	assert.True(t, b.Expired(resetAt.Add(time.Nanosecond)))
	assert.False(t, Bucket{Count: 1}.Expired(resetAt), "unstarted window")
}

func TestMemoryStore_SweepsExpiredBuckets(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	s := NewMemoryStoreWithClock(clock.Now)

	for _, key := range []string{"a", "b", "c"} {
		_, err := s.Incr(ctx, key)
		require.NoError(t, err)
		require.NoError(t, s.Expire(ctx, key, time.Minute))
	}
	assert.Equal(t, 3, s.Len())

	clock.Advance(2 * time.Minute)
	_, err := s.Incr(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_ExpireUnknownKey(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Expire(context.Background(), "missing", time.Minute))
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_, _ = s.Incr(ctx, "shared")
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	b, found, err := s.Get(ctx, "shared")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(1000), b.Count)
}

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:"), mr
}

func TestRedisStore_IncrAndExpire(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)

	_, found, err := s.Get(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, found)

	b, err := s.Incr(ctx, "ip:1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Count)
	assert.True(t, b.ResetAt.IsZero())

	require.NoError(t, s.Expire(ctx, "ip:1", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("test:ip:1"))

	b, err = s.Incr(ctx, "ip:1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), b.Count)
	assert.False(t, b.ResetAt.IsZero())

	got, found, err := s.Get(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), got.Count)

	mr.FastForward(time.Minute)
	_, found, err = s.Get(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t)
	mr.Close()

	_, err := s.Incr(ctx, "ip:1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, _, err = s.Get(ctx, "ip:1")
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	assert.ErrorIs(t, s.Expire(ctx, "ip:1", time.Minute), ErrStoreUnavailable)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), addr, "", 0)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
