package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ihs-daytrader/pkg/api"
	"github.com/ihs-daytrader/pkg/config"
	"github.com/ihs-daytrader/pkg/logging"
)

func main() {
	fmt.Println("IHS Backtest Server - Starting...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Requests carry their own series, so no API key is needed
	if err := cfg.Validate(false); err != nil {
		log.Fatalf("Config validation failed: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	server := api.NewServer(api.ServerConfig{
		Addr:           cfg.HTTPAddr,
		ProductionMode: os.Getenv("GIN_MODE") == "release",
	}, logger)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	done := make(chan error, 1)
	go func() {
		done <- server.Start()
	}()

	// Wait for shutdown signal or error
	select {
	case err := <-done:
		if err != nil {
			logger.Fatal().Err(err).Msg("server error")
		}
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("error during shutdown")
		}
	}

	fmt.Println("Server stopped.")
}
