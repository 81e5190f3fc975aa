package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kuldeep456789/VisionIQ/internal/app"
	"github.com/kuldeep456789/VisionIQ/internal/config"
	"github.com/kuldeep456789/VisionIQ/internal/logger"
)

func main() {
	// read by config.Load
	flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg, err := logger.New(logger.Options{
		Directory: cfg.LogDirectory,
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Error("Failed to start: %v", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		lg.Error("Server stopped with error: %v", err)
		os.Exit(1)
	}
	lg.Info("Server stopped")
}
