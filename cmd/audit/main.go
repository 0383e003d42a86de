package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"service-resolver-be/internal/config"
	"service-resolver-be/internal/pkg/logger"
	"service-resolver-be/pkg/events"
	pkgNats "service-resolver-be/pkg/nats"
)

// The audit worker tails the resolution event stream and writes every
// event to its own log file, independent of the API process lifecycle.
func main() {
	cfg := config.Load()

	auditLog := logger.NewIsolatedLogger("logs/resolution_audit.log")
	defer auditLog.Sync()

	subscriber, err := pkgNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Fatalf("[FATAL] Failed to connect to NATS: %v", err)
	}
	defer subscriber.Close()

	if err := subscriber.Subscribe("events.>", "resolution-audit", auditHandler(auditLog)); err != nil {
		log.Fatalf("[FATAL] Failed to subscribe: %v", err)
	}
	log.Println("✅ Audit worker is consuming resolution events")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Audit worker shutting down")
}

func auditHandler(auditLog logger.ILogger) pkgNats.EventHandler {
	return func(_ context.Context, event events.Event) error {
		auditLog.Info("audit", event.EventType(), event.Payload())
		return nil
	}
}
