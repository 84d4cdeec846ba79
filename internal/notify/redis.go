package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Redis publishes notices through Redis Pub/Sub so several server
// processes can share one notice stream.
type Redis struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedis(client *redis.Client, channel string, logger *slog.Logger) *Redis {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{client: client, channel: channel, logger: logger}
}

func (r *Redis) Publish(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("Notify: encode message failed", slog.Any("error", err))
		return
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.logger.Warn("Notify: redis publish failed", slog.String("channel", r.channel), slog.Any("error", err))
	}
}

func (r *Redis) Subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	out := make(chan []byte, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
