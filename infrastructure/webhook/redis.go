package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unifiedsync/syncd/domain/webhook"
)

// streamAdder is the part of *redis.Client the dispatcher needs.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisOptions configures NewRedisDispatcher.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	// MaxLen caps the stream length approximately; 0 leaves it unbounded.
	MaxLen int64
}

// RedisDispatcher appends each delivery to a Redis stream with XADD.
type RedisDispatcher struct {
	client streamAdder
	closer func() error
	stream string
	maxLen int64
	now    func() time.Time
}

// NewRedisDispatcher connects and pings Redis.
func NewRedisDispatcher(ctx context.Context, opts RedisOptions) (*RedisDispatcher, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	d := newRedisDispatcher(rdb, opts.Stream, opts.MaxLen)
	d.closer = rdb.Close
	return d, nil
}

func newRedisDispatcher(client streamAdder, stream string, maxLen int64) *RedisDispatcher {
	return &RedisDispatcher{
		client: client,
		closer: func() error { return nil },
		stream: stream,
		maxLen: maxLen,
		now:    time.Now,
	}
}

// Dispatch appends d to the stream. The payload is stored JSON-encoded in
// the "data" field.
func (r *RedisDispatcher) Dispatch(ctx context.Context, d webhook.Delivery) error {
	env := newEnvelope(d, r.now())
	data, err := json.Marshal(env.Data)
	if err != nil {
		return fmt.Errorf("marshal webhook: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]any{
			"id":         env.ID,
			"event_type": env.EventType,
			"project_id": env.ProjectID,
			"event_id":   env.EventID,
			"created_at": env.CreatedAt.Format(time.RFC3339Nano),
			"data":       string(data),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to XADD to stream %s: %w", r.stream, err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *RedisDispatcher) Close() error {
	return r.closer()
}
