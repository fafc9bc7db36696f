// Package relay republishes channel events to a RabbitMQ topic exchange so
// other processes can consume them.
package relay

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "watchparty.events"
	ExchangeType    = "topic"
	RoutingPrefix   = "watchparty."
)

// Config holds RabbitMQ settings.
type Config struct {
	Exchange   string
	MessageTTL int // Milliseconds
	Logger     *log.Logger
}

// Client wraps a RabbitMQ connection and channel with automatic reconnection.
type Client struct {
	url    string
	cfg    Config
	logger *log.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool

	pubMu       sync.Mutex
	notifyClose chan *amqp.Error
}

// NewClient connects to RabbitMQ and declares the exchange.
func NewClient(url string, cfg Config) (*Client, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	c := &Client{url: url, cfg: cfg, logger: cfg.Logger}
	if c.logger == nil {
		c.logger = log.Default()
	}

	if err := c.connect(); err != nil {
		return nil, err
	}

	go c.handleReconnect()

	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		c.cfg.Exchange,
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.notifyClose = make(chan *amqp.Error, 1)
	c.conn.NotifyClose(c.notifyClose)
	c.mu.Unlock()

	return nil
}

func (c *Client) handleReconnect() {
	for {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return
		}
		notifyClose := c.notifyClose
		c.mu.RUnlock()

		err := <-notifyClose
		if err == nil {
			return
		}

		c.logger.Warn("RabbitMQ connection lost, reconnecting...", "error", err)

		backoff := time.Second
		for {
			c.mu.RLock()
			if c.closed {
				c.mu.RUnlock()
				return
			}
			c.mu.RUnlock()

			time.Sleep(backoff)

			if err := c.connect(); err != nil {
				c.logger.Error("Reconnection failed", "error", err, "retry_in", backoff)
				backoff = nextBackoff(backoff)
				continue
			}

			c.logger.Info("RabbitMQ reconnected")
			break
		}
	}
}

const maxBackoff = 30 * time.Second

func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close shuts down the channel and connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// RoutingKey maps an event type to its routing key. Whitespace is replaced
// so a type never spans routing words unexpectedly.
func RoutingKey(eventType string) string {
	t := strings.Join(strings.Fields(eventType), "_")
	if t == "" {
		t = "unknown"
	}
	return RoutingPrefix + t
}

// Publish sends body under the routing key of eventType and waits for the
// broker to confirm it.
func (c *Client) Publish(ctx context.Context, eventType string, body []byte) error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()

	if ch == nil {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	publishing := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now(),
		Type:         eventType,
		Body:         body,
	}
	if c.cfg.MessageTTL > 0 {
		publishing.Expiration = fmt.Sprintf("%d", c.cfg.MessageTTL)
	}

	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, c.cfg.Exchange, RoutingKey(eventType), false, false, publishing)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	ok, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm event: %w", err)
	}
	if !ok {
		return fmt.Errorf("event was nacked by broker")
	}
	return nil
}

// Subscribe binds an exclusive auto-deleted queue to the given event type
// patterns and streams deliveries. "*" matches one word, "**" any number.
func (c *Client) Subscribe(patterns []string) (<-chan amqp.Delivery, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return nil, fmt.Errorf("not connected to RabbitMQ")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, pattern := range patterns {
		if err := ch.QueueBind(q.Name, BindingKey(pattern), c.cfg.Exchange, false, nil); err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to bind %s: %w", pattern, err)
		}
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	out := make(chan amqp.Delivery)
	go func() {
		defer ch.Close()
		defer close(out)
		for msg := range msgs {
			out <- msg
		}
	}()

	return out, nil
}

// BindingKey converts an event type pattern to an AMQP binding key.
func BindingKey(pattern string) string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = "**"
	}
	return RoutingPrefix + strings.ReplaceAll(pattern, "**", "#")
}
