package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/KlarLuft/PurifierCloud/internal/config"
	"github.com/KlarLuft/PurifierCloud/internal/queue"
	"github.com/KlarLuft/PurifierCloud/internal/storage"
	"github.com/KlarLuft/PurifierCloud/internal/system"
	"go.uber.org/zap"
)

func main() {
	// Logger initialisieren
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Config laden
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Config loaded successfully")

	// Storage Backend wählen
	var store queue.Store
	switch cfg.Storage.Backend {
	case "memory":
		store = storage.NewMemoryStore()
		logger.Warn("Using in-memory storage, commands will not survive a restart")
	default:
		store, err = storage.NewPostgresStore(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		logger.Info("Database connected successfully")
	}

	// Lifecycle Manager
	lifecycle := system.NewLifecycleManager(store, cfg, logger)

	// System starten
	if err := lifecycle.Start(); err != nil {
		logger.Fatal("Failed to start system", zap.Error(err))
	}

	logger.Info("PurifierCloud started successfully")

	// Graceful Shutdown auf Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	ctx := context.Background()
	if err := lifecycle.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("PurifierCloud stopped successfully")
}
