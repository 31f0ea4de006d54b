package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cafe-ordering/internal/config"
)

// DefaultAuditLog is where the consumer appends order events.
var DefaultAuditLog = filepath.Join("logs", "orders.log")

// Consumer reads OrderEvents from the queue and appends one line per event
// to the audit log.
type Consumer struct {
	url     string
	queue   string
	logPath string
	log     *slog.Logger
}

// NewConsumer returns a consumer for cfg writing to logPath.
func NewConsumer(cfg config.EventsConfig, logPath string, log *slog.Logger) *Consumer {
	if logPath == "" {
		logPath = DefaultAuditLog
	}
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{url: cfg.URL, queue: cfg.Queue, logPath: logPath, log: log.With(slog.String("component", "order-consumer"))}
}

// Run connects to RabbitMQ, declares the queue and consumes until ctx is
// done.  Broker failures trigger a reconnect with exponential backoff
// capped at 30s.  A message that cannot be handled is rejected without
// requeue so a bad payload cannot spin the loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("broker_dial_failed", slog.Any("err", err), slog.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume_loop_ended", slog.Any("err", err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set_qos_failed", slog.Any("err", err))
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(d.Body); err != nil {
				c.log.Warn("handle_message_failed", slog.Any("err", err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(body []byte) error {
	var ev OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return WriteAuditLine(f, ev)
}

// WriteAuditLine writes ev as a single human-friendly line.
func WriteAuditLine(w io.Writer, ev OrderEvent) error {
	line := fmt.Sprintf("[%s] %s | order_id=%d | type=%s | status=%s",
		ev.OccurredAt, ev.Event, ev.OrderID, ev.OrderType, ev.Status)
	if ev.PreviousStatus != "" {
		line += fmt.Sprintf(" | from=%s", ev.PreviousStatus)
	}
	line += fmt.Sprintf(" | payment=%s | items=%d | total=%d", ev.PaymentStatus, ev.Items, ev.TotalAmount)
	if ev.CancelReason != "" {
		line += fmt.Sprintf(" | reason=%q", ev.CancelReason)
	}
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
