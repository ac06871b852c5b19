package notifications

import (
	"context"
	"fmt"

	"cardetail/pkg/kafka"
	"cardetail/pkg/logger"
	"cardetail/pkg/model"
)

const (
	EventSource   = "bookings"
	SchemaVersion = "1"
)

// Publisher emits booking lifecycle events. Callers treat failures as
// best-effort: a lost notification never fails a transition.
type Publisher interface {
	Publish(ctx context.Context, event model.BookingEvent) error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
	log      *logger.Logger
}

func NewKafkaPublisher(producer messagePublisher, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.BookingID).
		WithValue(event).
		WithEventType(event.Type).
		WithSource(EventSource).
		WithSchemaVersion(SchemaVersion).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", event.Type, err)
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event for booking %s: %w", event.Type, event.BookingID, err)
	}
	return nil
}

// LogPublisher records events in the log only. Used when no broker is configured.
type LogPublisher struct {
	log *logger.Logger
}

func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, event model.BookingEvent) error {
	p.log.Info("Booking event",
		"event_type", event.Type,
		"booking_id", event.BookingID,
		"status", event.Status,
		"scheduled_date", event.ScheduledDate,
		"scheduled_time", event.ScheduledTime,
	)
	return nil
}
