package main

import (
	"os"
	"os/signal"
	"syscall"

	bookingrepo "cardetail/internal/bookings/repository"
	"cardetail/internal/notifications"
	"cardetail/internal/reminders"
	"cardetail/pkg/config"
	mongotx "cardetail/pkg/db/mongo"
)

const ServiceName = "reminders"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.Log.Info("Starting booking reminders worker")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher, closeEvents, err := notifications.NewPublisherFromConfig(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to set up booking events", "error", err)
	}
	dispatcher := notifications.NewDispatcher(publisher, notifications.DefaultPublishTimeout, cfg.Log)

	store := bookingrepo.NewMongoBookingRepository(cfg, mongotx.NewTransactionManager(cfg.Client.Mongo))
	worker := reminders.NewWorker(store, dispatcher, cfg)
	if err := worker.Start(); err != nil {
		cfg.Log.Fatal("Failed to start reminders worker", "error", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	cfg.Log.Info("Shutdown signal received", "signal", sig.String())

	if err := worker.Shutdown(); err != nil {
		cfg.Log.Error("Failed to stop scheduler", "error", err)
	}
	dispatcher.Wait()
	if err := closeEvents(); err != nil {
		cfg.Log.Error("Failed to close booking events producer", "error", err)
	}
	cfg.Log.Info("Reminders worker stopped")
}
