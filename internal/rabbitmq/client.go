package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Client держит единственное соединение и канал с брокером на процесс.
// Объявления очередей и обменников идемпотентны, их можно повторять.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *zap.SugaredLogger
}

// Delivery is what a registered consumer handler receives: the parsed
// envelope plus the raw body for payload-shape fallbacks.
type Delivery struct {
	Envelope Envelope
	Body     []byte
}

// Handler processes a single message. Returning nil acks the message;
// returning an error nacks it without requeue (dead-letter routing).
type Handler func(ctx context.Context, d Delivery) error

// Connect dials the broker with bounded retries and backoff. The process
// cannot serve its purpose without the broker, so callers treat a final
// error as fatal.
func Connect(url string, maxRetries int, delay time.Duration, log *zap.SugaredLogger) (*Client, error) {
	conn, err := connectWithRetry(url, maxRetries, delay, log)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// One unacked message per consumer at a time.
	if err := channel.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &Client{
		conn:    conn,
		channel: channel,
		log:     log,
	}, nil
}

func connectWithRetry(url string, maxRetries int, delay time.Duration, log *zap.SugaredLogger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < maxRetries; i++ {
		log.Infof("connecting to RabbitMQ (attempt %d/%d)", i+1, maxRetries)
		conn, err = amqp.Dial(url)
		if err == nil {
			log.Info("connected to RabbitMQ")
			return conn, nil
		}

		log.Warnf("rabbitmq connect failed: %v", err)
		if i < maxRetries-1 {
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %w", maxRetries, err)
}

// DeclareQueue ensures a durable queue exists. Failed messages are routed to
// the dead-letter exchange instead of being requeued.
func (c *Client) DeclareQueue(name string) error {
	_, err := c.channel.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-dead-letter-exchange": DeadLetterExchange},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	return nil
}

// BindQueue declares a durable exchange of the given kind and binds the
// queue under every routing key.
func (c *Client) BindQueue(queue, exchange string, routingKeys []string, kind string) error {
	if err := c.channel.ExchangeDeclare(exchange, kind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if err := c.DeclareQueue(queue); err != nil {
		return err
	}
	for _, key := range routingKeys {
		if err := c.channel.QueueBind(queue, key, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s -> %s [%s]: %w", queue, exchange, key, err)
		}
	}
	return nil
}

// Publish serializes the envelope and sends it to the queue with the
// persistence flag set. It does not wait for a consumer.
func (c *Client) Publish(ctx context.Context, queue string, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	err = c.channel.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			CorrelationId: env.CorrelationID,
			Timestamp:     env.Timestamp,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", queue, err)
	}
	return nil
}

// RegisterConsumer subscribes with manual acknowledgment. Handler success
// acks the message; handler failure and malformed envelopes nack without
// requeue so the broker dead-letters them instead of hot-looping.
func (c *Client) RegisterConsumer(queue string, handler Handler) error {
	msgs, err := c.channel.Consume(
		queue,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", queue, err)
	}

	go func() {
		for msg := range msgs {
			var env Envelope
			if err := json.Unmarshal(msg.Body, &env); err != nil {
				c.log.Errorf("malformed message on %s: %v", queue, err)
				_ = msg.Nack(false, false)
				continue
			}

			if err := handler(context.Background(), Delivery{Envelope: env, Body: msg.Body}); err != nil {
				c.log.Errorf("message handler failed on %s: %v", queue, err)
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		}
	}()

	c.log.Infof("consumer registered on queue %s", queue)
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
