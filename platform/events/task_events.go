package events

import (
	"context"
	"encoding/json"
	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	TaskEventChannel = "task:events"
)

type EventPublisher struct {
	redisClient *redis.Client
}

func NewEventPublisher(redisClient *redis.Client) *EventPublisher {
	return &EventPublisher{redisClient: redisClient}
}

func (p *EventPublisher) PublishTaskEvent(event *models.TaskEvent) error {
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		logging.Logger.Error("fail PublishTaskEvent", "error", err)
		return err
	}
	ctx := context.Background()
	if err := p.redisClient.Publish(ctx, TaskEventChannel, string(data)).Err(); err != nil {
		logging.Logger.Error("fail PublishTaskEvent", "error", err)
		return err
	}
	return nil
}

func (p *EventPublisher) SubscribeTaskEvents(ctx context.Context) (<-chan *models.TaskEvent, error) {
	pubsub := p.redisClient.Subscribe(ctx, TaskEventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		logging.Logger.Error("fail SubscribeTaskEvents", "error", err)
		return nil, err
	}
	ch := make(chan *models.TaskEvent, 100)

	// goroutine to listen
	go func() {
		defer close(ch)
		defer func(pubsub *redis.PubSub) {
			err := pubsub.Close()
			if err != nil {
				logging.Logger.Error("fail SubscribeTaskEvents", "error", err)
			}
		}(pubsub)

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-pubsub.Channel():
				var event models.TaskEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logging.Logger.Error("Failed to unmarshal event", "error", err)
					continue
				}

				select {
				case ch <- &event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
