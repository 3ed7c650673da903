package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskHandler processes one generation task. A returned error sends the
// delivery to the dead-letter queue; a nil error acknowledges it. Business
// failures that were reported to the owner (errored run parked for resume)
// count as handled and must return nil.
type TaskHandler interface {
	Handle(ctx context.Context, task StoryTaskPayload) error
}

// TaskConsumer reads generation tasks from the tasks queue one at a time.
type TaskConsumer struct {
	conn    *amqp.Connection
	handler TaskHandler
	logger  *zap.Logger
	channel *amqp.Channel
	done    chan struct{}
}

// NewTaskConsumer creates a consumer; Start must be called to begin work.
func NewTaskConsumer(conn *amqp.Connection, handler TaskHandler, logger *zap.Logger) *TaskConsumer {
	return &TaskConsumer{
		conn:    conn,
		handler: handler,
		logger:  logger.Named("TaskConsumer"),
		done:    make(chan struct{}),
	}
}

// Start opens a channel and begins consuming. Prefetch is 1 because a task
// is minutes of work; hoarding deliveries starves other workers.
func (c *TaskConsumer) Start(ctx context.Context) error {
	var err error
	c.channel, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel for task consumer: %w", err)
	}

	if err := DeclareTaskTopology(c.channel); err != nil {
		_ = c.channel.Close()
		return err
	}

	if err := c.channel.Qos(1, 0, false); err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := c.channel.Consume(
		StoryTasksQueue,
		"",    // consumer tag (auto-generated)
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = c.channel.Close()
		return fmt.Errorf("failed to register task consumer: %w", err)
	}

	c.logger.Info("Task consumer started, waiting for tasks...")

	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("Panic recovered in task consumer goroutine", zap.Any("panic", r))
			}
			close(c.done)
		}()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Info("Task consumer channel closed, exiting goroutine.")
					return
				}
				c.handleDelivery(ctx, msg)
			case <-ctx.Done():
				c.logger.Info("Context cancelled, stopping task consumer goroutine.")
				return
			}
		}
	}()

	return nil
}

func (c *TaskConsumer) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	var task StoryTaskPayload
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		c.logger.Error("Failed to unmarshal task message, sending to DLQ",
			zap.Error(err),
			zap.String("messageId", msg.MessageId))
		_ = msg.Nack(false, false)
		return
	}

	c.logger.Info("Task received",
		zap.String("taskId", task.TaskID),
		zap.String("type", task.Type),
		zap.String("ownerId", task.OwnerID))

	if err := c.handler.Handle(ctx, task); err != nil {
		c.logger.Error("Task handling failed, sending to DLQ",
			zap.String("taskId", task.TaskID),
			zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	if err := msg.Ack(false); err != nil {
		c.logger.Error("Failed to ack task", zap.String("taskId", task.TaskID), zap.Error(err))
	}
}

// Stop cancels the subscription and waits briefly for the goroutine to exit.
func (c *TaskConsumer) Stop() error {
	c.logger.Info("Stopping task consumer...")
	if c.channel != nil {
		if err := c.channel.Cancel("", false); err != nil {
			c.logger.Error("Error cancelling task consumer subscription", zap.Error(err))
		}
	}

	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		c.logger.Warn("Timeout waiting for task consumer goroutine to stop.")
	}

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Warn("Error closing task consumer channel", zap.Error(err))
		}
	}
	c.logger.Info("Task consumer stopped.")
	return nil
}
