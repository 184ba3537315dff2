package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/service"
	"github.com/Eursukkul/care-booking-service/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const RoutingPaymentPaid = "payment.paid"

type PaymentPaidEvent struct {
	PaymentID string    `json:"payment_id"`
	BookingID string    `json:"booking_id"`
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	PaidAt    time.Time `json:"paid_at"`
}

type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, eventID, bookingID string) (*models.Booking, error)
}

type PaymentConsumer struct {
	svc     PaymentConfirmer
	log     *logger.Logger
	timeout time.Duration
}

func NewPaymentConsumer(svc PaymentConfirmer, log *logger.Logger) *PaymentConsumer {
	return &PaymentConsumer{
		svc:     svc,
		log:     log.With("component", "payment_consumer"),
		timeout: 15 * time.Second,
	}
}

// Run processes deliveries until msgs is closed or ctx is done.
func (pc *PaymentConsumer) Run(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				pc.log.Info("delivery channel closed, stopping consumer")
				return nil
			}
			pc.handleMessage(ctx, msg)
		}
	}
}

func (pc *PaymentConsumer) handleMessage(ctx context.Context, msg amqp.Delivery) {
	var event PaymentPaidEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		pc.log.Warn("dropping malformed payment event", "error", err)
		_ = msg.Nack(false, false)
		return
	}
	if event.PaymentID == "" || event.BookingID == "" {
		pc.log.Warn("dropping payment event without ids", "payment_id", event.PaymentID, "booking_id", event.BookingID)
		_ = msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, pc.timeout)
	defer cancel()

	booking, err := pc.svc.ConfirmPayment(ctx, event.PaymentID, event.BookingID)
	switch {
	case err == nil:
		pc.log.Info("payment applied", "payment_id", event.PaymentID, "booking_id", booking.ID, "status", booking.Status)
		_ = msg.Ack(false)
	case errors.Is(err, service.ErrDatabase):
		pc.log.Error("payment event failed, requeueing", "payment_id", event.PaymentID, "booking_id", event.BookingID, "error", err)
		_ = msg.Nack(false, true)
	default:
		// Rejected by the booking rules; redelivery would fail the same way.
		pc.log.Warn("payment event rejected", "payment_id", event.PaymentID, "booking_id", event.BookingID, "error", err)
		_ = msg.Ack(false)
	}
}
