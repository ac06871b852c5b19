package main

import (
	bookinghandler "cardetail/internal/bookings/handler"
	bookingrepo "cardetail/internal/bookings/repository"
	bookingservice "cardetail/internal/bookings/service"
	bookingvalidator "cardetail/internal/bookings/validator"
	cataloghandler "cardetail/internal/catalog/handler"
	catalogrepo "cardetail/internal/catalog/repository"
	catalogservice "cardetail/internal/catalog/service"
	catalogvalidator "cardetail/internal/catalog/validator"
	"cardetail/internal/notifications"
	"cardetail/internal/payments"
	promohandler "cardetail/internal/promocodes/handler"
	promorepo "cardetail/internal/promocodes/repository"
	promoservice "cardetail/internal/promocodes/service"
	promovalidator "cardetail/internal/promocodes/validator"
	"cardetail/pkg/app"
	"cardetail/pkg/config"
	mongotx "cardetail/pkg/db/mongo"
)

const ServiceName = "bookings"

type services struct {
	bookings    bookingservice.BookingService
	catalog     catalogservice.CatalogService
	promoCodes  promoservice.PromoCodeService
	dispatcher  *notifications.Dispatcher
	closeEvents func() error
}

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	cfg.LogConfiguration()

	cfg.Log.Info("Starting Bookings service")
	cfg.SetMongo()
	cfg.SetRedis()

	svc := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		bookinghandler.NewBookingHandler(svc.bookings, cfg.Log),
		cataloghandler.NewServiceHandler(svc.catalog, cfg.Log),
		promohandler.NewPromoCodeHandler(svc.promoCodes, cfg.Log),
	)
	serverApp.OnShutdown(func() {
		svc.dispatcher.Wait()
		if err := svc.closeEvents(); err != nil {
			cfg.Log.Error("Failed to close booking events producer", "error", err)
		}
	})
	serverApp.Run()
}

func initServices(cfg *config.Config) *services {
	var txManager mongotx.TransactionManager = mongotx.NoopTransactionManager{}
	if cfg.MongoTransactions {
		txManager = mongotx.NewTransactionManager(cfg.Client.Mongo)
	}

	catalog := catalogservice.NewCatalogService(
		catalogrepo.NewMongoServiceRepository(cfg),
		catalogvalidator.NewServiceValidator(cfg.Log),
		cfg.Log,
	)

	promoCodes := promoservice.NewPromoCodeService(
		promorepo.NewMongoPromoCodeRepository(cfg),
		promovalidator.NewPromoCodeValidator(cfg.Log),
		cfg.Log,
	)

	publisher, closeEvents, err := notifications.NewPublisherFromConfig(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to set up booking events", "error", err)
	}
	dispatcher := notifications.NewDispatcher(publisher, notifications.DefaultPublishTimeout, cfg.Log)

	bookings := bookingservice.NewBookingService(
		bookingrepo.NewMongoBookingRepository(cfg, txManager),
		bookingrepo.NewMongoSlotReservationRepository(cfg),
		catalog,
		promoCodes,
		payments.NewRefundProvider(cfg.RazorpayKey, cfg.RazorpaySecret, cfg.Log),
		dispatcher,
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Booking services initialized", "database", cfg.MongoDatabaseName)
	return &services{
		bookings:    bookings,
		catalog:     catalog,
		promoCodes:  promoCodes,
		dispatcher:  dispatcher,
		closeEvents: closeEvents,
	}
}
