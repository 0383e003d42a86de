package main

import (
	"context"
	"log"

	"service-resolver-be/internal/bootstrap"
	"service-resolver-be/internal/config"
	"service-resolver-be/internal/server"
	"service-resolver-be/internal/tracer"
)

func main() {
	// 1. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 2. Load Configuration
	cfg := config.Load()

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer func() {
		if container.IndexClient != nil {
			container.IndexClient.Close()
		}
		if container.NatsPub != nil {
			container.NatsPub.Close()
		}
	}()

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
