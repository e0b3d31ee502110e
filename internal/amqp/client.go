// Package amqp carries sync completion events between the server and
// the report worker. One direct exchange, one durable queue, one
// message type.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type Client struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	// The queue name doubles as the routing key on the direct exchange.
	exchange string
	queue    string
}

// NewClient connects and declares the exchange, the durable queue, and
// the binding between them. Declaration is idempotent, so publisher and
// consumer can start in either order.
func NewClient(url, exchange, queue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := channel.QueueBind(queue, queue, exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}

	return &Client{conn: conn, channel: channel, exchange: exchange, queue: queue}, nil
}

// PublishSyncCompleted announces one finished sync pass. Deliveries are
// persistent so a worker restart does not lose pending exports.
func (c *Client) PublishSyncCompleted(ctx context.Context, inserted int, checkpoint int64) error {
	msg := NewSyncCompletedMessage(inserted, checkpoint)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal sync completed message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = c.channel.PublishWithContext(ctx, c.exchange, c.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish sync completed message: %w", err)
	}

	slog.InfoContext(ctx, "Published sync completed message",
		"inserted", inserted,
		"checkpoint", checkpoint,
		"queue", c.queue)
	return nil
}

// ConsumeSyncCompleted delivers each sync completion event to handler
// until ctx is cancelled. Handler failures nack with requeue so the
// export is retried; undecodable payloads are dropped.
func (c *Client) ConsumeSyncCompleted(ctx context.Context, handler func(*SyncCompletedMessage) error) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	slog.InfoContext(ctx, "Consuming sync completed messages", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, delivery amqp091.Delivery, handler func(*SyncCompletedMessage) error) {
	msg, err := SyncCompletedMessageFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping undecodable message", "error", err)
		delivery.Nack(false, false)
		return
	}

	if err := handler(msg); err != nil {
		slog.ErrorContext(ctx, "Handler failed, requeueing message",
			"error", err,
			"inserted", msg.Inserted,
			"checkpoint", msg.Checkpoint)
		delivery.Nack(false, true)
		return
	}

	delivery.Ack(false)
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
