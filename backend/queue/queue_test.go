package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemoryDispatch(t *testing.T) {
	q := NewMemory()
	ctx := context.Background()

	_, err := q.Dispatch(ctx, Job{Name: "send-email"})
	require.ErrorIs(t, err, ErrUnknownJob)

	q.Handle("send-email", func(context.Context, Envelope) error { return nil })
	id, err := q.Dispatch(ctx, Job{Name: "send-email", Data: map[string]any{"to": "a@example.com"}})
	require.NoError(t, err)
	_, err = ulid.Parse(id)
	require.NoError(t, err)

	_, err = q.Dispatch(ctx, Job{Name: "send-email", Queue: "mail"})
	require.NoError(t, err)

	status, err := q.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "memory", status.Driver)
	require.Equal(t, map[string]int64{"default": 1, "mail": 1}, status.Pending)
}

func TestMemoryRun(t *testing.T) {
	q := NewMemory()
	done := make(chan Envelope, 2)
	q.Handle("ok", func(_ context.Context, env Envelope) error {
		done <- env
		return nil
	})
	q.Handle("bad", func(context.Context, Envelope) error { return errors.New("boom") })
	q.Handle("panics", func(context.Context, Envelope) error { panic("oops") })

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(runDone)
	}()

	for _, name := range []string{"bad", "panics", "ok"} {
		_, err := q.Dispatch(ctx, Job{Name: name, Data: map[string]any{"n": 1}})
		require.NoError(t, err)
	}

	select {
	case env := <-done:
		require.Equal(t, "ok", env.Name)
		require.Equal(t, DefaultQueue, env.Queue)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}

	require.Eventually(t, func() bool {
		s, _ := q.Status(context.Background())
		return s.Processed == 1 && s.Failed == 2 && len(s.Pending) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-runDone
}

func TestMemoryDispatchHonorsContext(t *testing.T) {
	q := NewMemory(WithCapacity(0))
	q.Handle("slow", func(context.Context, Envelope) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Dispatch(ctx, Job{Name: "slow"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	status, _ := q.Status(context.Background())
	require.Empty(t, status.Pending)
}

func TestRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379", DB: 4})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	prefix := "mcp-toolbox-test:queue:"
	defer client.Del(ctx, prefix+"queues", prefix+"default", prefix+"mail")

	q, err := NewRedis(RedisConfig{Client: client, KeyPrefix: prefix})
	require.NoError(t, err)

	id, err := q.Dispatch(ctx, Job{Name: "send-email", Data: map[string]any{"to": "a"}})
	require.NoError(t, err)
	_, err = q.Dispatch(ctx, Job{Name: "send-email", Queue: "mail"})
	require.NoError(t, err)

	raw, err := client.RPop(ctx, prefix+"default").Bytes()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.Equal(t, id, env.ID)
	require.Equal(t, "send-email", env.Name)

	status, err := q.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"mail": 1}, status.Pending)

	_, err = q.Dispatch(ctx, Job{})
	require.ErrorIs(t, err, ErrUnknownJob)
}
