package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const dialAttempts = 5

// Topology names the broker objects the consumer depends on. The order
// queue carries a dead-letter binding so rejected messages land on the
// dead-letter queue instead of being dropped.
type Topology struct {
	Exchange           string
	Queue              string
	RoutingKey         string
	DeadLetterExchange string
	DeadLetterQueue    string
}

// Client wraps one RabbitMQ connection and channel with the orders
// topology declared.
type Client struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	topology Topology
	logger   *zap.Logger
}

// NewClient dials the broker with backoff and declares the exchange,
// queue, and dead-letter pair.
func NewClient(url string, topology Topology, logger *zap.Logger) (*Client, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		retryIn := time.Duration(i*i)*time.Second + time.Second
		logger.Warn("rabbitmq dial failed, retrying",
			zap.Duration("retry_in", retryIn),
			zap.Error(err),
		)
		time.Sleep(retryIn)
	}
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:     conn,
		channel:  channel,
		topology: topology,
		logger:   logger,
	}
	if err := client.declareTopology(); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	return client, nil
}

func (c *Client) declareTopology() error {
	t := c.topology

	if err := c.channel.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.Exchange, err)
	}
	if err := c.channel.ExchangeDeclare(t.DeadLetterExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.DeadLetterExchange, err)
	}

	dlq, err := c.channel.QueueDeclare(t.DeadLetterQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", t.DeadLetterQueue, err)
	}
	if err := c.channel.QueueBind(dlq.Name, "", t.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", dlq.Name, err)
	}

	queue, err := c.channel.QueueDeclare(t.Queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": t.DeadLetterExchange,
	})
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", t.Queue, err)
	}
	if err := c.channel.QueueBind(queue.Name, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", queue.Name, err)
	}

	return nil
}

// Consume starts delivering from the order queue with manual acks.
// prefetch bounds unacknowledged deliveries, typically the worker count.
func (c *Client) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := c.channel.Consume(c.topology.Queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.topology.Queue, err)
	}

	c.logger.Info("consuming orders",
		zap.String("queue", c.topology.Queue),
		zap.Int("prefetch", prefetch),
	)
	return deliveries, nil
}

// Publish sends a persistent message to the orders exchange. Used by the
// load generator and tests; the consumer itself only reads.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	err := c.channel.PublishWithContext(
		ctx,
		c.topology.Exchange,
		c.topology.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", c.topology.Exchange, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			return err
		}
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
