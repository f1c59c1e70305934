package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mobility-cloud/internal/relay"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := relay.LoadConfig()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	r, err := relay.New(cfg, logger)
	if err != nil {
		logger.Fatalf("relay error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Printf("relaying %s from %s to %s (interval %s)", cfg.Topic, cfg.Broker, cfg.ForwardURL, cfg.MinInterval)
	if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("relay stopped: %v", err)
	}
}
