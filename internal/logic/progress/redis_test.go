package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisProgressStore(t *testing.T) {
	rdb := newTestRedis(t)
	store := NewRedisProgressStore(rdb)
	ctx := context.Background()
	id := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = store.Release(context.Background(), id) })

	s, err := store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, s)

	ok, err := store.TryClaim(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.TryClaim(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.MarkStatus(ctx, id, StatusRejected))
	s, err = store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, s)

	ttl, err := rdb.TTL(ctx, store.getKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Hour)

	require.NoError(t, store.MarkStatus(ctx, id, StatusUnknown))
	s, err = store.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, s)
}
