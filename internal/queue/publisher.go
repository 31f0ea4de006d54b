package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cafe-ordering/internal/config"
	"github.com/iliyamo/cafe-ordering/internal/logger"
)

// Publisher publishes OrderEvents to a durable queue.  Each publish dials
// its own connection; order writes are rare enough that a pooled channel
// is not worth the reconnect bookkeeping.  Errors are logged and returned
// so the caller can choose to ignore them.
type Publisher struct {
	url   string
	queue string
}

// NewPublisher returns a publisher for cfg.
func NewPublisher(cfg config.EventsConfig) *Publisher {
	return &Publisher{url: cfg.URL, queue: cfg.Queue}
}

// Publish sends ev as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev OrderEvent) error {
	log := logger.From(ctx).With(slog.String("event", ev.Event), slog.Uint64("order_id", ev.OrderID))

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      dialContext(ctx),
	})
	if err != nil {
		log.Warn("rabbitmq_dial_failed", slog.Any("err", err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq_channel_failed", slog.Any("err", err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		log.Warn("rabbitmq_queue_declare_failed", slog.Any("err", err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Event,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		log.Warn("rabbitmq_publish_failed", slog.Any("err", err))
		return err
	}
	return nil
}

// dialContext returns an amqp dial func bound to ctx.  The TCP connect
// honours ctx, and ctx's deadline also bounds the AMQP handshake; amqp091
// clears the connection deadline once the handshake completes.
func dialContext(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if deadline, ok := ctx.Deadline(); ok {
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		return conn, nil
	}
}

// NopPublisher drops every event.  It is used when events are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
