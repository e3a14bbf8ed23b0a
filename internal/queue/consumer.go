package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/bus-seat-admin/internal/model"
	"github.com/iliyamo/bus-seat-admin/internal/service"
)

// PaymentConfirmer applies a payment result to its booking.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, r model.PaymentResult) (model.Booking, error)
}

// PaymentConsumer reads payment results from the payment events queue.
type PaymentConsumer struct {
	url     string
	queue   string
	ledger  PaymentConfirmer
	log     *slog.Logger
	timeout time.Duration
}

// NewPaymentConsumer returns a consumer that confirms payments through
// ledger.
func NewPaymentConsumer(url string, ledger PaymentConfirmer, logger *slog.Logger) *PaymentConsumer {
	if url == "" {
		url = DefaultURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentConsumer{url: url, queue: PaymentEventsQueue, ledger: ledger, log: logger, timeout: 5 * time.Second}
}

// Run consumes until ctx is cancelled, reconnecting with backoff when
// the broker goes away.  It returns ctx.Err().
func (c *PaymentConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.DialConfig(c.url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
		if err != nil {
			c.log.Warn("payment consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
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
			return ctx.Err()
		}
		c.log.Warn("payment consumer: loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *PaymentConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("payment consumer: set qos failed", "err", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", c.queue, err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			switch c.handle(ctx, d.Body) {
			case outcomeAck:
				_ = d.Ack(false)
			case outcomeRetry:
				_ = d.Nack(false, true)
			default:
				_ = d.Nack(false, false)
			}
		}
	}
}

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRetry
	outcomeReject
)

// handle applies one message.  Malformed messages and messages for
// unknown bookings are rejected without requeue; a store outage is
// requeued.
func (c *PaymentConsumer) handle(ctx context.Context, body []byte) outcome {
	r, err := DecodePayment(body)
	if errors.Is(err, ErrUnhandledEvent) {
		return outcomeAck
	}
	if err != nil {
		c.log.Warn("payment consumer: bad message", "err", err)
		return outcomeReject
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	b, err := c.ledger.ConfirmPayment(ctx, r)
	switch {
	case err == nil:
		c.log.Info("payment applied", "booking_id", b.ID, "reference", r.Reference, "outcome", r.Outcome, "payment_status", b.PaymentStatus)
		return outcomeAck
	case errors.Is(err, service.ErrStoreUnavailable):
		c.log.Error("payment consumer: store unavailable", "booking_id", r.BookingID, "err", err)
		return outcomeRetry
	default:
		c.log.Warn("payment consumer: payment rejected", "booking_id", r.BookingID, "err", err)
		return outcomeReject
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
