package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markdave123-py/damage-detector/internal/app"
	"github.com/markdave123-py/damage-detector/internal/config"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer application.Close()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Server.Start()
	}()

	log.Println("Damage detector is running.")
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Printf("server error: %v", err)
		}
	}

	log.Println("shutting down...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
