package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleetwatch/pkg/config"
	"fleetwatch/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DeliveryQueueName  = "notification_delivery"
	DeliveryExchange   = "notifications"
	DeliveryRoutingKey = "deliver"
	MaxPriority        = 10
)

// DeliveryTask asks a consumer to fan one stored notification out to its channels.
type DeliveryTask struct {
	NotificationID string `json:"notification_id"`
}

type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *logger.Logger
}

func NewRabbitMQClient(cfg *config.Config, log *logger.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	log.Info("Connected to RabbitMQ at %s:%s", cfg.RabbitMQHost, cfg.RabbitMQPort)

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  log,
	}, nil
}

func declareTopology(channel *amqp.Channel) error {
	err := channel.ExchangeDeclare(
		DeliveryExchange, // name
		"direct",         // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		DeliveryQueueName, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		amqp.Table{
			"x-max-priority": MaxPriority,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(DeliveryQueueName, DeliveryRoutingKey, DeliveryExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// PublishDeliveryTask enqueues a task with the given AMQP priority, clamped to 0..MaxPriority.
func (c *Client) PublishDeliveryTask(ctx context.Context, task DeliveryTask, priority uint8) error {
	if priority > MaxPriority {
		priority = MaxPriority
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.PublishWithContext(ctx,
		DeliveryExchange,   // exchange
		DeliveryRoutingKey, // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Priority:     priority,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("[RABBITMQ] Failed to publish delivery task %s: %v", task.NotificationID, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("[RABBITMQ] Published delivery task %s with priority %d", task.NotificationID, priority)
	return nil
}

// ConsumeDeliveryTasks starts a consumer goroutine that runs handler for each
// task until ctx is cancelled or the channel closes.
func (c *Client) ConsumeDeliveryTasks(ctx context.Context, handler func(context.Context, DeliveryTask) error) error {
	msgs, err := c.channel.Consume(
		DeliveryQueueName, // queue
		"",                // consumer
		false,             // auto-ack
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] Started consuming from %s", DeliveryQueueName)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("[RABBITMQ] Delivery channel closed")
					return
				}
				c.process(ctx, msg, handler)
			}
		}
	}()

	return nil
}

func (c *Client) process(ctx context.Context, msg amqp.Delivery, handler func(context.Context, DeliveryTask) error) {
	var task DeliveryTask
	if err := json.Unmarshal(msg.Body, &task); err != nil || task.NotificationID == "" {
		c.logger.Error("[RABBITMQ] Dropping malformed delivery task: %s", string(msg.Body))
		msg.Nack(false, false)
		return
	}

	if err := handler(ctx, task); err != nil {
		// A task gets one requeue; a failing redelivery is dropped.
		if msg.Redelivered {
			c.logger.Error("[RABBITMQ] Redelivered task %s failed again, dropping: %v", task.NotificationID, err)
			msg.Nack(false, false)
			return
		}
		c.logger.Error("[RABBITMQ] Delivery of %s failed, requeueing once: %v", task.NotificationID, err)
		msg.Nack(false, true)
		return
	}

	msg.Ack(false)
}

func (c *Client) QueueLength() (int, error) {
	q, err := c.channel.QueueInspect(DeliveryQueueName)
	if err != nil {
		return 0, err
	}
	return q.Messages, nil
}
