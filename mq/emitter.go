package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"eventdir/models"

	"github.com/redis/go-redis/v9"
)

// Channel carries moderation notifications.
const Channel = "moderation-events"

// Notifier announces a finished moderation step.
type Notifier interface {
	Notify(ctx context.Context, content models.Index) error
}

// Redis publishes notifications on a Redis channel.
type Redis struct {
	Conn    *redis.Client
	Channel string
}

func NewRedis(conn *redis.Client) *Redis {
	return &Redis{Conn: conn, Channel: Channel}
}

func (p *Redis) Notify(ctx context.Context, content models.Index) error {
	data, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}
	if err := p.Conn.Publish(ctx, p.Channel, data).Err(); err != nil {
		return fmt.Errorf("notify: publish to %s: %w", p.Channel, err)
	}
	log.Printf("[Emit] %s %s %s published to '%s'", content.Method, content.EntityType, content.EntityId, p.Channel)
	return nil
}

// Log only writes notifications to the log. Used when no Redis is configured.
type Log struct{}

func (Log) Notify(_ context.Context, content models.Index) error {
	log.Printf("[Emit] %s %s %s", content.Method, content.EntityType, content.EntityId)
	return nil
}

// Listen consumes notifications from the channel until ctx is done.
func Listen(ctx context.Context, conn *redis.Client, channel string, handle func(models.Index)) error {
	sub := conn.Subscribe(ctx, channel)
	defer sub.Close()
	ch := sub.Channel()

	log.Printf("[ModerationWorker] Listening on '%s'...", channel)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.Index
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("[ModerationWorker] Failed to parse event: %v", err)
				continue
			}
			handle(event)
		}
	}
}
