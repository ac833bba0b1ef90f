package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"yamdb/pkg/logger"

	amqp "github.com/streadway/amqp"
)

// EmailMessage is the job published for every outbound email.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     logger.Log
	mu      sync.Mutex // serialises publishes on the shared channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the email queue.
func NewClient(cfg Config, log logger.Log) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", cfg.Queue, err)
	}

	log.Info("RabbitMQ client connected", "queue", cfg.Queue)

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		log:     log,
	}, nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishEmail publishes a persistent email job to the queue.
func (c *Client) PublishEmail(msg EmailMessage) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal email message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		"",      // default exchange
		c.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish email message: %w", err)
	}
	return nil
}

// ConsumeEmails starts a goroutine that feeds queued email jobs to handler
// until ctx is cancelled. Successful jobs are acked. A failed job is requeued
// once and dropped when it fails again; malformed jobs are dropped at once.
// Dropped jobs go to the queue's dead-letter exchange when the broker has one.
func (c *Client) ConsumeEmails(ctx context.Context, handler func(msg EmailMessage) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	queue, err := declareQueue(c.channel, c.queue)
	if err != nil {
		return fmt.Errorf("failed to declare queue for consuming: %w", err)
	}
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	tag := queue.Name + "-mailer"
	msgs, err := c.channel.Consume(
		queue.Name,
		tag,   // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		defer c.log.Info("RabbitMQ consumer stopped", "queue", queue.Name)
		for {
			select {
			case <-ctx.Done():
				if err := c.channel.Cancel(tag, false); err != nil {
					c.log.ErrorErr("failed to cancel consumer", err, "queue", queue.Name)
					return
				}
				// Cancel closes msgs; anything still buffered goes back untouched.
				for d := range msgs {
					handleDelivery(ctx, d, handler, c.log)
				}
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				handleDelivery(ctx, d, handler, c.log)
			}
		}
	}()

	return nil
}

func handleDelivery(ctx context.Context, d amqp.Delivery, handler func(msg EmailMessage) error, log logger.Log) {
	if ctx.Err() != nil {
		nack(d, true, log)
		return
	}

	var msg EmailMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		log.ErrorErr("dropping malformed email message", err, "delivery_tag", d.DeliveryTag)
		nack(d, false, log)
		return
	}

	if err := handler(msg); err != nil {
		switch {
		case ctx.Err() != nil:
			// shutdown interrupted the send; the next consumer retries it
			log.Warn("email delivery interrupted, requeueing", "delivery_tag", d.DeliveryTag)
			nack(d, true, log)
		case d.Redelivered:
			log.ErrorErr("email delivery failed again, dropping message", err,
				"delivery_tag", d.DeliveryTag, "to", msg.To)
			nack(d, false, log)
		default:
			log.ErrorErr("email delivery failed, requeueing once", err, "delivery_tag", d.DeliveryTag)
			nack(d, true, log)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		log.ErrorErr("failed to ack email message", err, "delivery_tag", d.DeliveryTag)
	}
}

func nack(d amqp.Delivery, requeue bool, log logger.Log) {
	if err := d.Nack(false, requeue); err != nil {
		log.ErrorErr("failed to nack email message", err, "delivery_tag", d.DeliveryTag)
	}
}
