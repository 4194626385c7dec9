package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"wealth-tracker-go/internal/assets"
	"wealth-tracker-go/internal/config"
	"wealth-tracker-go/internal/database"
	"wealth-tracker-go/internal/logger"
	"wealth-tracker-go/internal/market"
	"wealth-tracker-go/internal/server"
	"wealth-tracker-go/internal/vision"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Market-data client and screenshot parser are constructed once here
	// and passed by reference; no package-level singletons.
	marketClient := market.NewClient(&cfg.Market, log)

	parser, err := vision.NewGeminiParser(ctx, &cfg.Vision, log)
	if err != nil {
		log.Fatal("Failed to initialize vision parser", zap.Error(err))
	}

	service := assets.NewService(log, db, marketClient, parser)

	apiServer := server.NewServer(&cfg, service, log)
	apiServer.Start()

	// Wait for shutdown signal
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}

	log.Info("Server has been shut down.")
}
