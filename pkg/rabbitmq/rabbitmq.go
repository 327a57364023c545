package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler processes a single raw delivery. Deliveries are auto-acknowledged
// before the handler runs, so a handler failure drops the message.
type Handler func(ctx context.Context, body []byte)

// Client wraps a RabbitMQ connection and channel. Both the publisher and the
// subscriber side declare their queues idempotently, so startup order of the
// services does not matter.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

// URL builds an AMQP connection URL from the broker parameters.
func URL(host, user, pass string) string {
	return fmt.Sprintf("amqp://%s:%s@%s:5672/", user, pass, host)
}

// Dial connects to RabbitMQ, retrying while the broker comes up.
func Dial(url string, logger *zap.Logger) (*Client, error) {
	conn, err := connectWithRetry(url, 10, 5*time.Second, logger)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &Client{
		conn:    conn,
		channel: channel,
		logger:  logger,
	}, nil
}

// connectWithRetry attempts to connect to RabbitMQ with retries
func connectWithRetry(url string, maxRetries int, delay time.Duration, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			logger.Info("connected to RabbitMQ")
			return conn, nil
		}

		logger.Warn("failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("maxRetries", maxRetries),
			zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
}

// DeclareQueue declares a queue if it does not exist yet. Queues are
// non-durable and non-exclusive; a broker restart drops queued messages.
func (c *Client) DeclareQueue(name string) error {
	_, err := c.channel.QueueDeclare(
		name,
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

// Publish marshals v as JSON and publishes it to the named queue.
// Fire-and-forget: no confirmation is awaited.
func (c *Client) Publish(queueName string, v any) error {
	if err := c.DeclareQueue(queueName); err != nil {
		return err
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = c.channel.Publish(
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug("published message",
		zap.String("queue", queueName),
		zap.Int("size", len(body)))
	return nil
}

// Subscribe consumes the named queue until ctx is cancelled or the delivery
// channel closes. Deliveries are auto-acknowledged (at-most-once). At most
// concurrency handlers run at the same time; OCR is memory-heavy, so the
// bound must be chosen deliberately rather than left to dispatch order.
func (c *Client) Subscribe(ctx context.Context, queueName string, concurrency int, handler Handler) error {
	if err := c.DeclareQueue(queueName); err != nil {
		return err
	}

	deliveries, err := c.channel.Consume(
		queueName,
		"",    // consumer
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	if concurrency < 1 {
		concurrency = 1
	}

	c.logger.Info("waiting for messages",
		zap.String("queue", queueName),
		zap.Int("concurrency", concurrency))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for {
		select {
		case <-ctx.Done():
			// Let in-flight handlers drain before returning.
			g.Wait()
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				g.Wait()
				return fmt.Errorf("delivery channel for queue %s closed", queueName)
			}
			body := msg.Body
			g.Go(func() error {
				handler(gctx, body)
				return nil
			})
		}
	}
}

// Close closes the channel and connection.
func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
