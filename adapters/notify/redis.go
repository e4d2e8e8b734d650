package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"iac-pipeline/core/output"
)

// Pusher is the list operation the Redis notifier needs
type Pusher interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Redis pushes the JSON artifact of each report onto a list
type Redis struct {
	client Pusher
	list   string
}

// NewRedis connects to addr
func NewRedis(addr, list string) *Redis {
	return NewRedisWithClient(redis.NewClient(&redis.Options{Addr: addr}), list)
}

// NewRedisWithClient uses an existing client
func NewRedisWithClient(client Pusher, list string) *Redis {
	return &Redis{client: client, list: list}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Notify(ctx context.Context, report *output.Report) error {
	var buf bytes.Buffer
	if err := (&output.JSONFormatter{}).Render(&buf, report); err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := r.client.LPush(ctx, r.list, buf.Bytes()).Err(); err != nil {
		return fmt.Errorf("failed to push to redis list %s: %w", r.list, err)
	}
	return nil
}
