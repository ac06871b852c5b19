package notifications

import (
	"context"
	"sync"
	"time"

	"cardetail/pkg/logger"
	"cardetail/pkg/model"
)

const DefaultPublishTimeout = 5 * time.Second

// Dispatcher publishes events in the background, detached from the
// caller's cancellation. Failures are logged and dropped.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	log       *logger.Logger
	wg        sync.WaitGroup
}

func NewDispatcher(publisher Publisher, timeout time.Duration, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Dispatcher{publisher: publisher, timeout: timeout, log: log}
}

func (d *Dispatcher) Notify(ctx context.Context, eventType string, b *model.Booking, reason string) {
	event := model.NewBookingEvent(eventType, b, reason)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.publisher.Publish(pubCtx, event); err != nil {
			d.log.Warn("Failed to publish booking event",
				"event_type", eventType,
				"booking_id", event.BookingID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until every in-flight publish has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
