package notification

import (
	"context"
	"sync"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/pkg/logger"
)

// Sender is the synchronous side of the dispatcher.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	MarkBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus, userIDs []string) error
}

// Dispatcher runs notification work in the background after the caller's
// transaction has committed. Failures are logged and never retried.
type Dispatcher struct {
	sender  Sender
	timeout time.Duration
	log     *logger.Logger
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, timeout time.Duration, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{sender: sender, timeout: timeout, log: log.With("component", "notification-dispatcher")}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msgs ...Message) {
	for _, msg := range msgs {
		if msg.UserID == "" {
			continue
		}
		d.run(ctx, func(ctx context.Context) error {
			return d.sender.Send(ctx, msg)
		}, "user_id", msg.UserID, "title", msg.Title)
	}
}

func (d *Dispatcher) DispatchBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus, userIDs ...string) {
	d.run(ctx, func(ctx context.Context) error {
		return d.sender.MarkBookingStatus(ctx, bookingID, status, userIDs)
	}, "booking_id", bookingID, "status", status)
}

// Wait blocks until all in-flight sends have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(parent context.Context, fn func(context.Context) error, kv ...any) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// the request context is usually gone by the time this runs
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			d.log.Warn("notification dispatch failed", append(kv, "error", err)...)
		}
	}()
}
