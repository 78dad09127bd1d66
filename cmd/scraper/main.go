package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Ioioiog/engie-scraper/internal/captcha"
	"github.com/Ioioiog/engie-scraper/internal/config"
	"github.com/Ioioiog/engie-scraper/internal/logger"
	"github.com/Ioioiog/engie-scraper/internal/scraper"
)

// One-shot runner: scrape once, print the result as JSON on stdout, exit
// non-zero on failure. Meant for cron jobs and manual runs.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting one-shot invoice scrape...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	solver := captcha.NewClient(cfg.Captcha, logger)
	result, err := scraper.New(cfg, solver, logger).Run(ctx)
	if err != nil {
		logger.WithError(err).Error("Scrape failed")
		os.Exit(1)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.WithError(err).Error("Failed to encode result")
		os.Exit(1)
	}
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}
