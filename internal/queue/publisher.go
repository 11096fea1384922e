package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/listing-booking/internal/model"
)

// defaultDialTimeout bounds connecting when the caller's context has no
// deadline.
const defaultDialTimeout = 5 * time.Second

// Publisher sends booking events to RabbitMQ.  The connection is opened on
// first use and reopened after the broker drops it.  Errors are logged and
// returned; callers treat them as non-fatal.
//
// Every publish is bounded by its context: waiting for the connection slot
// and dialing both give up at the caller's deadline.
type Publisher struct {
	url string
	log *slog.Logger

	// slot guards conn and ch.  It is a one-element channel instead of a
	// mutex so waiters can leave when their context ends.
	slot chan struct{}
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{
		url:  url,
		log:  logger.With("component", "publisher"),
		slot: make(chan struct{}, 1),
	}
}

func (p *Publisher) acquire(ctx context.Context) error {
	select {
	case p.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) release() { <-p.slot }

// BookingCreated publishes a BookingCreatedEvent to booking.created.
func (p *Publisher) BookingCreated(ctx context.Context, r model.Reservation) error {
	return p.publish(ctx, QueueBookingCreated, createdEvent(r))
}

// BookingCanceled publishes a BookingCanceledEvent to booking.canceled.
func (p *Publisher) BookingCanceled(ctx context.Context, c model.Cancellation) error {
	return p.publish(ctx, QueueBookingCanceled, canceledEvent(c))
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", queue, err)
	}
	if err := p.acquire(ctx); err != nil {
		p.log.Warn("rabbitmq publish abandoned", "queue", queue, "err", err)
		return err
	}
	defer p.release()

	ch, err := p.channelLocked(ctx)
	if err != nil {
		p.log.Warn("rabbitmq unavailable", "queue", queue, "err", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		p.resetLocked()
		p.log.Warn("rabbitmq publish failed", "queue", queue, "err", err)
		return err
	}
	return nil
}

func (p *Publisher) channelLocked(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()
	timeout := dialTimeout(ctx)
	if timeout <= 0 {
		return nil, fmt.Errorf("dial: %w", context.DeadlineExceeded)
	}
	// DefaultDial also sets the socket deadline used by the AMQP handshake.
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := declareQueues(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// dialTimeout is the time left before ctx's deadline, capped at
// defaultDialTimeout.
func dialTimeout(ctx context.Context) time.Duration {
	if ctx.Err() != nil {
		return 0
	}
	d := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	return d
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	_ = p.acquire(context.Background())
	defer p.release()
	p.resetLocked()
	return nil
}

// declareQueues makes both booking queues exist (durable, idempotent).
func declareQueues(ch *amqp.Channel) error {
	for _, q := range []string{QueueBookingCreated, QueueBookingCanceled} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
	}
	return nil
}
