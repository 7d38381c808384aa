package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wb-go/wbf/logger"
)

const logFileName = "booking.log"

// Consumer listens on both booking queues and appends every event to
// <logDir>/booking.log.  It stands in for the notification channel.
type Consumer struct {
	url    string
	logDir string
	log    logger.Logger

	mu sync.Mutex // serialises writes to the log file
}

func NewConsumer(url, logDir string, log logger.Logger) *Consumer {
	return &Consumer{url: url, logDir: logDir, log: log}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff when the connection drops.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("booking consumer: dial failed",
				logger.String("error", err.Error()),
				logger.Duration("retry_in", backoff),
			)
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("booking consumer: loop ended, reconnecting", logger.String("error", err.Error()))
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("booking consumer: set QoS failed", logger.String("error", err.Error()))
	}
	if err := declareQueues(ch); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	confirmed, err := ch.Consume(BookingConfirmed, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", BookingConfirmed, err)
	}
	cancelled, err := ch.Consume(BookingCancelled, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", BookingCancelled, err)
	}
	c.log.Info("booking consumer started")

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-confirmed:
		case d, ok = <-cancelled:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := c.Handle(d.Body); err != nil {
			c.log.Error("booking consumer: handle message failed",
				logger.String("queue", d.RoutingKey),
				logger.String("error", err.Error()),
			)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

// Handle decodes one event and appends it to the notification log.
func (c *Consumer) Handle(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type != BookingConfirmed && ev.Type != BookingCancelled {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(ev.LogLine()); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
