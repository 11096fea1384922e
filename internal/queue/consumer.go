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
)

// AuditConsumer appends one line per booking event to an audit log file,
// logs/booking.log by default.
type AuditConsumer struct {
	URL  string
	Path string
	Log  *slog.Logger
}

func NewAuditConsumer(url string, logger *slog.Logger) *AuditConsumer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AuditConsumer{
		URL:  url,
		Path: filepath.Join("logs", "booking.log"),
		Log:  logger.With("component", "booking-consumer"),
	}
}

// Run consumes both booking queues until ctx is canceled, reconnecting with
// exponential backoff (capped at 30s) whenever the broker goes away.
func (a *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.URL)
		if err != nil {
			a.Log.Warn("dial broker failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = a.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.Log.Warn("consume loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
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

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		a.Log.Warn("set QoS failed", "err", err)
	}
	if err := declareQueues(ch); err != nil {
		return err
	}
	created, err := ch.Consume(QueueBookingCreated, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", QueueBookingCreated, err)
	}
	canceled, err := ch.Consume(QueueBookingCanceled, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", QueueBookingCanceled, err)
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-created:
		case d, ok = <-canceled:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := a.handle(d.RoutingKey, d.Body); err != nil {
			a.Log.Error("handle message failed", "queue", d.RoutingKey, "err", err)
			_ = d.Nack(false, false) // reject without requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
}

func (a *AuditConsumer) handle(queue string, body []byte) error {
	line, err := FormatAuditLine(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(a.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := io.WriteString(f, line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatAuditLine renders one event as a single newline-terminated line.
func FormatAuditLine(queue string, body []byte) (string, error) {
	switch queue {
	case QueueBookingCreated:
		var ev BookingCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Booking created | booking_id=%s | listing_id=%s | tenant_id=%s | from=%s | to=%s | nights=%d | total=%d | travelers=%d\n",
			ev.CreatedAt, ev.BookingID, ev.ListingID, ev.TenantID, ev.StartDate, ev.EndDate, ev.Nights, ev.TotalPrice, ev.Travelers), nil
	case QueueBookingCanceled:
		var ev BookingCanceledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Booking canceled | booking_id=%s | listing_id=%s | by=%s | as=%s\n",
			ev.CanceledAt, ev.BookingID, ev.ListingID, ev.CanceledBy, ev.Mode), nil
	}
	return "", fmt.Errorf("unknown queue %q", queue)
}
