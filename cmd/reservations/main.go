package main

import (
	"context"

	bookinghandler "reservo/internal/bookings/handler"
	bookingrepo "reservo/internal/bookings/repository"
	bookingservice "reservo/internal/bookings/service"
	bookingvalidator "reservo/internal/bookings/validator"
	"reservo/internal/notifications"
	slothandler "reservo/internal/slots/handler"
	slotrepo "reservo/internal/slots/repository"
	slotservice "reservo/internal/slots/service"
	slotvalidator "reservo/internal/slots/validator"
	"reservo/pkg/app"
	"reservo/pkg/config"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Connect()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Reservations service", "store_backend", cfg.StoreBackend)

	dispatcher := initNotifications(cfg)
	slotService, bookingService := initServices(cfg, dispatcher)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, cfg.Client,
		slothandler.NewSlotHandler(slotService, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
	)
	if dispatcher != nil {
		serverApp.OnShutdown(dispatcher.Close)
	}
	serverApp.Run()
}

// initNotifications returns nil when the configured sink is "none".
func initNotifications(cfg *config.Config) *notifications.Dispatcher {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeout)
	defer cancel()

	sink, err := notifications.NewSink(ctx, cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification sink", "sink", cfg.NotificationSink, "error", err)
	}
	if sink == nil {
		cfg.Log.Info("Notifications disabled")
		return nil
	}

	cfg.Log.Info("Notification dispatcher initialized",
		"sink", cfg.NotificationSink,
		"workers", cfg.NotificationWorkers,
		"buffer", cfg.NotificationBuffer,
	)
	return notifications.NewDispatcher(cfg.Log, sink, cfg.NotificationWorkers, cfg.NotificationBuffer, cfg.NotificationTimeout)
}

func initServices(cfg *config.Config, dispatcher *notifications.Dispatcher) (slotservice.SlotService, bookingservice.BookingService) {
	slots := slotrepo.New(cfg)
	bookings := bookingrepo.New(cfg)

	slotService := slotservice.NewSlotService(
		slots,
		bookings,
		slotvalidator.NewSlotValidator(cfg.Log),
		cfg,
	)

	var notifier bookingservice.Notifier
	if dispatcher != nil {
		notifier = dispatcher
	}
	bookingService := bookingservice.NewBookingService(
		bookings,
		slots,
		notifier,
		bookingvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Services initialized", "store_backend", cfg.StoreBackend)
	return slotService, bookingService
}
