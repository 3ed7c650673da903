package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskPublisher enqueues generation tasks for the worker.
type TaskPublisher interface {
	Publish(ctx context.Context, payload StoryTaskPayload) error
}

type rabbitTaskPublisher struct {
	channel *amqp.Channel
	logger  *zap.Logger
}

// NewRabbitTaskPublisher returns a publisher for the tasks queue. The queue
// itself (with its dead-letter wiring) is declared at process startup.
func NewRabbitTaskPublisher(ch *amqp.Channel, logger *zap.Logger) TaskPublisher {
	return &rabbitTaskPublisher{
		channel: ch,
		logger:  logger.Named("RabbitTaskPublisher"),
	}
}

func (p *rabbitTaskPublisher) Publish(ctx context.Context, payload StoryTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task %s: %w", payload.TaskID, err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",
		StoryTasksQueue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        "storybook-api",
			MessageId:    payload.TaskID,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish task",
			zap.String("taskId", payload.TaskID),
			zap.String("type", payload.Type),
			zap.Error(err))
		return fmt.Errorf("failed to publish task %s: %w", payload.TaskID, err)
	}

	p.logger.Info("Task published",
		zap.String("taskId", payload.TaskID),
		zap.String("type", payload.Type),
		zap.String("ownerId", payload.OwnerID))
	return nil
}

// DeclareTaskTopology sets up the tasks queue with its dead-letter exchange
// and queue. Safe to call from every process that touches the topology.
func DeclareTaskTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		DeadLetterExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(
		StoryTasksDLQ,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}

	if err := ch.QueueBind(StoryTasksDLQ, StoryTasksQueue, DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	if _, err := ch.QueueDeclare(
		StoryTasksQueue,
		true,
		false,
		false,
		false,
		amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchange,
			"x-dead-letter-routing-key": StoryTasksQueue,
		},
	); err != nil {
		return fmt.Errorf("failed to declare tasks queue: %w", err)
	}

	return nil
}
