package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solar-monitor-backend/config"
	"solar-monitor-backend/internal/db"
	"solar-monitor-backend/internal/ingest"
	"solar-monitor-backend/internal/otp"
	"solar-monitor-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "ingestd ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := otp.NewWhatsAppSender(cfg.Otp)
	appStore := store.NewGormStore(gormDB, sender, time.Duration(cfg.Otp.ExpiryMinutes)*time.Minute)

	svc := ingest.NewService(cfg, appStore)

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Println("Shutdown signal received, stopping ingest...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Fatalf("ingest service: %v", err)
		}
	}

	logger.Println("Ingest gracefully stopped")
}
