package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis queue.
type RedisConfig struct {
	Client *redis.Client

	// KeyPrefix namespaces queue keys. Default: "mcp-toolbox:queue:".
	KeyPrefix string
}

// Redis pushes JSON envelopes onto Redis lists, one list per queue, for an
// external worker to consume.
type Redis struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedis creates a Redis-backed queue.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Client == nil {
		return nil, errors.New("queue: redis client is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "mcp-toolbox:queue:"
	}
	return &Redis{client: cfg.Client, keyPrefix: cfg.KeyPrefix}, nil
}

func (r *Redis) listKey(queue string) string {
	return r.keyPrefix + queue
}

func (r *Redis) queuesKey() string {
	return r.keyPrefix + "queues"
}

// Dispatch pushes the job envelope onto its queue list.
func (r *Redis) Dispatch(ctx context.Context, job Job) (string, error) {
	if job.Name == "" {
		return "", fmt.Errorf("%w: empty job name", ErrUnknownJob)
	}
	env := envelope(job, time.Now())
	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("queue: encode job: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.queuesKey(), env.Queue)
	pipe.LPush(ctx, r.listKey(env.Queue), raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("queue: dispatch %s: %w", env.Name, err)
	}
	return env.ID, nil
}

// Status reports the length of every queue that has seen a dispatch.
func (r *Redis) Status(ctx context.Context) (*Status, error) {
	queues, err := r.client.SMembers(ctx, r.queuesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("queue: status: %w", err)
	}

	pending := make(map[string]int64, len(queues))
	for _, q := range queues {
		n, err := r.client.LLen(ctx, r.listKey(q)).Result()
		if err != nil {
			return nil, fmt.Errorf("queue: status %s: %w", q, err)
		}
		if n > 0 {
			pending[q] = n
		}
	}
	return &Status{Driver: "redis", Pending: pending}, nil
}
