package infra

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bloghub.com/internal/constants"
	"bloghub.com/internal/event"
)

// RedisEventPublisher forwards bus events to a Redis channel so other
// processes (search indexers, notifiers) can follow blog activity.
type RedisEventPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisEventPublisher(rdb *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb, channel: constants.RedisPubSubEvents}
}

// Handle is an event.Handler.
func (p *RedisEventPublisher) Handle(ctx context.Context, evt event.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event to redis: %w", err)
	}
	return nil
}

// SubscribeAll attaches the publisher to every event type in types.
func (p *RedisEventPublisher) SubscribeAll(bus *event.Bus, types ...string) {
	for _, t := range types {
		bus.Subscribe(t, p.Handle)
	}
}
