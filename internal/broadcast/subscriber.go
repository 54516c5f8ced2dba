package broadcast

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Subscriber читает события из канала Redis Pub/Sub и передает их хабу
type Subscriber struct {
	redisClient *redis.Client
	hub         *Hub
	logger      *logrus.Logger
}

// NewSubscriber создает новый Subscriber
func NewSubscriber(client *redis.Client, hub *Hub, logger *logrus.Logger) *Subscriber {
	return &Subscriber{
		redisClient: client,
		hub:         hub,
		logger:      logger,
	}
}

// Start запускает горутину, переносящую события из Redis в хаб.
// Пропущенные во время отключения события не восстанавливаются.
func (s *Subscriber) Start(ctx context.Context) {
	pubsub := s.redisClient.Subscribe(ctx, eventsChannel)
	s.logger.WithField("channel", eventsChannel).Info("Subscribed to event channel")

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("Stopping event subscriber")
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.logger.WithError(err).Error("Failed to unmarshal event from Redis")
					continue
				}
				s.hub.Broadcast(event)
			}
		}
	}()
}
