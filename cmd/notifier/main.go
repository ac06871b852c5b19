package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cardetail/internal/notifications"
	"cardetail/pkg/config"
	"cardetail/pkg/kafka"
	kafka_config "cardetail/pkg/kafka/config"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)
	cfg.LogConfiguration()
	cfg.Log.Info("Starting booking notifier")

	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid kafka configuration", "error", err)
	}

	mailer := notifications.NewSMTPMailer(notifications.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, cfg.Log)
	emails := notifications.NewEmailHandler(mailer, cfg.OperatorEmail, cfg.Log)

	consumer, err := kafka.NewConsumer(kcfg, cfg.BookingEventsTopic, cfg.BookingEventsDLQTopic, emails.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking events consumer", "error", err)
	}
	consumer.Use(kafka.LoggingConsumerMiddleware(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Consuming booking events",
		"topic", cfg.BookingEventsTopic,
		"group", kcfg.ConsumerGroupID,
	)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		cfg.Log.Error("Booking events consumer stopped", "error", err)
	}

	cfg.Log.Info("Shutting down booking notifier")
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
}
