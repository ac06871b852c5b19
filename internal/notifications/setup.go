package notifications

import (
	"fmt"

	"cardetail/pkg/config"
	"cardetail/pkg/kafka"
	kafka_config "cardetail/pkg/kafka/config"
)

// NewPublisherFromConfig returns a Kafka-backed publisher when events are
// enabled, or a log-only publisher otherwise. The returned close func is
// always safe to call.
func NewPublisherFromConfig(cfg *config.Config) (Publisher, func() error, error) {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Booking events disabled, logging events only")
		return NewLogPublisher(cfg.Log), func() error { return nil }, nil
	}

	kcfg, err := kafka_config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid kafka configuration: %w", err)
	}

	producer, err := kafka.NewProducer(kcfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create booking events producer: %w", err)
	}
	producer.Use(kafka.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Booking events published to Kafka",
		"topic", cfg.BookingEventsTopic,
		"brokers", kcfg.Brokers,
	)
	return NewKafkaPublisher(producer, cfg.Log), producer.Close, nil
}
