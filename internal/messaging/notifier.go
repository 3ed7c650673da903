package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier publishes generation run updates for downstream consumers.
type Notifier interface {
	Notify(ctx context.Context, payload StoryUpdatePayload) error
}

type rabbitNotifier struct {
	channel *amqp.Channel
	logger  *zap.Logger
}

// NewRabbitNotifier declares the updates queue and returns a publisher bound
// to it. The channel is owned by the caller and closed there.
func NewRabbitNotifier(ch *amqp.Channel, logger *zap.Logger) (Notifier, error) {
	_, err := ch.QueueDeclare(
		StoryUpdatesQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-queue-mode": "lazy"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare updates queue '%s': %w", StoryUpdatesQueue, err)
	}

	return &rabbitNotifier{
		channel: ch,
		logger:  logger.Named("RabbitNotifier"),
	}, nil
}

func (n *rabbitNotifier) Notify(ctx context.Context, payload StoryUpdatePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal update for task %s: %w", payload.TaskID, err)
	}

	err = n.channel.PublishWithContext(ctx,
		"",
		StoryUpdatesQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        "storybook-worker",
			MessageId:    payload.TaskID + "-update",
		},
	)
	if err != nil {
		n.logger.Error("Failed to publish update",
			zap.String("taskId", payload.TaskID),
			zap.String("status", payload.Status),
			zap.Error(err))
		return fmt.Errorf("failed to publish update for task %s: %w", payload.TaskID, err)
	}

	n.logger.Debug("Update published",
		zap.String("taskId", payload.TaskID),
		zap.String("status", payload.Status),
		zap.String("stage", payload.Stage))
	return nil
}
