package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	c, err := NewCache(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisKV(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ir:hash", "{}", time.Minute))
	v, err := c.Get(ctx, "ir:hash")
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "ir:hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisHashAndSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.HSet(ctx, "flags:p1", "seen", "b:true"))
	all, err := c.HGetAll(ctx, "flags:p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"seen": "b:true"}, all)

	require.NoError(t, c.SAdd(ctx, "events:p1", "ending_a", "ending_b"))
	ok, err := c.SIsMember(ctx, "events:p1", "ending_a")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, c.SRem(ctx, "events:p1", "ending_a"))
	ok, err = c.SIsMember(ctx, "events:p1", "ending_a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisPushCapped(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.PushCapped(ctx, "backlog:p1", 2, "one", "two", "three"))
	items, err := c.LRange(ctx, "backlog:p1", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "two"}, items)

	stored, err := mr.List("backlog:p1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRedisPubSub(t *testing.T) {
	mr := miniredis.RunT(t)
	ps, err := NewPubSub(Config{Addr: mr.Addr()})
	require.NoError(t, err)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "session:s1")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "session:s1", "hello"))
	select {
	case msg := <-ch:
		assert.Equal(t, "session:s1", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}
