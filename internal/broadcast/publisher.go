package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// eventsChannel - канал Redis Pub/Sub для событий жизненного цикла
	eventsChannel = "incident_events"
)

// Publisher - интерфейс для публикации событий жизненного цикла
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher - реализация Publisher поверх Redis Pub/Sub.
// Доставка best-effort: события не хранятся и не переигрываются.
type RedisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher создает новый RedisPublisher
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish публикует событие в канал Redis
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast event: %w", err)
	}

	if err := p.redisClient.Publish(ctx, eventsChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish broadcast event to Redis: %w", err)
	}
	return nil
}
