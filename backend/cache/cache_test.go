package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "greeting", "hello", 0))
		v, found, err := s.Get(ctx, "greeting")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "hello", v)
	})

	t.Run("missing key", func(t *testing.T) {
		v, found, err := s.Get(ctx, "absent")
		require.NoError(t, err)
		require.False(t, found)
		require.Nil(t, v)
	})

	t.Run("structured values", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "user", map[string]any{"name": "alice"}, time.Minute))
		v, found, err := s.Get(ctx, "user")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, map[string]any{"name": "alice"}, v)
	})

	t.Run("forget", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "temp", "x", 0))
		existed, err := s.Forget(ctx, "temp")
		require.NoError(t, err)
		require.True(t, existed)

		existed, err = s.Forget(ctx, "temp")
		require.NoError(t, err)
		require.False(t, existed)
	})

	t.Run("flush", func(t *testing.T) {
		require.NoError(t, s.Set(ctx, "a", "1", 0))
		require.NoError(t, s.Set(ctx, "b", "2", 0))
		require.NoError(t, s.Flush(ctx))

		_, found, err := s.Get(ctx, "a")
		require.NoError(t, err)
		require.False(t, found)
	})
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

func TestMemoryTTL(t *testing.T) {
	m := NewMemory()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "short", "v", 10*time.Second))
	require.NoError(t, m.Set(ctx, "forever", "v", 0))

	now = now.Add(9 * time.Second)
	_, found, _ := m.Get(ctx, "short")
	require.True(t, found)

	now = now.Add(time.Second)
	_, found, _ = m.Get(ctx, "short")
	require.False(t, found)

	now = now.Add(24 * time.Hour)
	_, found, _ = m.Get(ctx, "forever")
	require.True(t, found)
}

func TestRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 3})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	s, err := NewRedis(RedisConfig{Client: client, KeyPrefix: "mcp-toolbox-test:cache:"})
	require.NoError(t, err)
	defer func() { _ = s.Flush(ctx) }()

	testStore(t, s)
}

func TestNewRedisRequiresClient(t *testing.T) {
	_, err := NewRedis(RedisConfig{})
	require.Error(t, err)
}
