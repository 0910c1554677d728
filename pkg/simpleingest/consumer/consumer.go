// Package consumer is the RabbitMQ boundary of the ingest pipeline. It
// pulls bucket-notification messages off a durable queue, decodes them, and
// hands them to a message function, acknowledging only after the function
// completes. Delivery is at-least-once: a failed message is nacked and the
// broker decides (requeue or dead-letter) per configuration.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageFunc processes one decoded queue message. A returned error marks
// the message as failed; returning nil acknowledges it.
type MessageFunc func(ctx context.Context, raw map[string]any) error

// Config configures a Consumer.
type Config struct {
	// URL is the broker connection string (amqp://...).
	URL string

	// Exchange is a durable direct exchange declared on startup.
	Exchange string

	// RoutingKey binds the queue to the exchange.
	RoutingKey string

	// Queue is the durable queue to consume from.
	Queue string

	// Concurrency is the number of messages processed at once; it also
	// sets the channel prefetch. Minimum 1.
	Concurrency int

	// RequeueOnError requeues failed messages instead of leaving them to
	// the queue's dead-letter routing.
	RequeueOnError bool
}

// Consumer consumes one queue on one connection. Reconnecting after a
// broker failure is the caller's concern (Run returns and can be called
// again).
type Consumer struct {
	cfg    Config
	handle MessageFunc
	logger *slog.Logger
}

// New creates a consumer. The message function is required.
func New(cfg Config, handle MessageFunc, logger *slog.Logger) (*Consumer, error) {
	if handle == nil {
		return nil, errors.New("consumer: message func is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Consumer{cfg: cfg, handle: handle, logger: logger}, nil
}

// Run declares the exchange/queue topology and consumes until the context
// is canceled or the broker closes the delivery stream.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("consumer: dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer: open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(c.cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("consumer: declare exchange %s: %w", c.cfg.Exchange, err)
	}

	queue, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consumer: declare queue %s: %w", c.cfg.Queue, err)
	}

	if err := ch.QueueBind(queue.Name, c.cfg.RoutingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("consumer: bind queue %s: %w", queue.Name, err)
	}

	if err := ch.Qos(c.cfg.Concurrency, 0, false); err != nil {
		return fmt.Errorf("consumer: set QoS: %w", err)
	}

	deliveries, err := ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consumer: consume %s: %w", queue.Name, err)
	}

	c.logger.Info("consuming storage events",
		"queue", queue.Name,
		"exchange", c.cfg.Exchange,
		"routing_key", c.cfg.RoutingKey,
		"concurrency", c.cfg.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				c.handleDelivery(ctx, d)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		// Closing the channel ends the deliveries range; in-flight
		// handlers finish before the workers exit.
		_ = ch.Close()
		<-done
		return ctx.Err()
	case <-done:
		return errors.New("consumer: delivery stream closed by broker")
	}
}

// handleDelivery decodes and dispatches one message. An undecodable body
// can never succeed, so it is rejected without requeue.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var raw map[string]any
	if err := json.Unmarshal(d.Body, &raw); err != nil {
		c.logger.Error("dropping undecodable message",
			"routing_key", d.RoutingKey,
			"error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := c.handle(ctx, raw); err != nil {
		c.logger.Error("message handling failed",
			"routing_key", d.RoutingKey,
			"requeue", c.cfg.RequeueOnError,
			"error", err)
		_ = d.Nack(false, c.cfg.RequeueOnError)
		return
	}

	_ = d.Ack(false)
}
