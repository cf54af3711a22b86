// Package queue moves canvas operation jobs through Redis. Delivery is
// at-least-once with no same-key ordering; the storage row lock, not the
// queue, is what serializes same-thread operations. Committed states fan out
// to live collaborators over per-thread pub/sub channels.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"weave/api/internal/canvas"
	"weave/api/internal/identity"
	"weave/api/internal/ops"
)

// ErrEmpty is returned by Dequeue when no job arrived within the wait.
var ErrEmpty = errors.New("queue empty")

type Queue struct {
	client *redis.Client
	key    string
}

// New connects to Redis and verifies the connection.
func New(redisURL, key string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Queue{client: client, key: key}, nil
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

// Enqueue pushes one operation job.
func (q *Queue) Enqueue(ctx context.Context, env ops.Envelope) error {
	data, err := ops.EncodeEnvelope(env)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Dequeue blocks up to wait for the next job. Returns ErrEmpty on a clean
// timeout so worker loops can poll without treating it as a failure.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (ops.Envelope, error) {
	res, err := q.client.BRPop(ctx, wait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return ops.Envelope{}, ErrEmpty
	}
	if err != nil {
		return ops.Envelope{}, fmt.Errorf("dequeue job: %w", err)
	}
	// BRPop returns [key, value].
	return ops.DecodeEnvelope([]byte(res[1]))
}

func updatesChannel(threadID identity.ThreadID) string {
	return "canvas:updates:" + string(threadID)
}

// PublishState pushes a committed post-mutation canvas to the thread's live
// update channel for anything watching the thread.
func (q *Queue) PublishState(ctx context.Context, threadID identity.ThreadID, state *canvas.State) error {
	data, err := state.Encode()
	if err != nil {
		return err
	}
	if err := q.client.Publish(ctx, updatesChannel(threadID), data).Err(); err != nil {
		return fmt.Errorf("publish canvas update: %w", err)
	}
	return nil
}

// SubscribeUpdates subscribes to a thread's live update channel. The caller
// owns the returned subscription and must close it.
func (q *Queue) SubscribeUpdates(ctx context.Context, threadID identity.ThreadID) *redis.PubSub {
	return q.client.Subscribe(ctx, updatesChannel(threadID))
}

// Len reports the number of queued jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

// Ping checks if Redis is reachable
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (q *Queue) Close() error {
	return q.client.Close()
}
