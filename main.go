package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dailyscrum/internal/app"
	"dailyscrum/internal/config"
	"dailyscrum/internal/services"
	"dailyscrum/pkg/logging"

	"github.com/streadway/amqp"
)

const startupTimeout = 15 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	// Graceful shutdown handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server gracefully stopped")
}

// serve builds the app, starts the event consumer and listens until ctx is done.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	initCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	application, err := app.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("error while closing connections", "error", err)
		}
	}()

	// --- Start RabbitMQ Consumer ---
	if application.Events != nil {
		if err := application.Events.Consume(eventLogger(logger)); err != nil {
			logger.Warn("failed to start event consumer", "error", err)
		}
	}

	// --- Start HTTP Server ---
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.AppPort)
		listenErr <- application.Fiber.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	if err := application.Fiber.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("error during fiber shutdown: %w", err)
	}
	return nil
}

// eventLogger returns a consumer handler that records every domain event.
func eventLogger(logger *slog.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var ev services.Event
		if err := json.Unmarshal(msg.Body, &ev); err != nil {
			return fmt.Errorf("decode event %s: %w", msg.RoutingKey, err)
		}
		logger.Info("event received",
			"routing_key", msg.RoutingKey,
			"type", ev.Type,
			"id", ev.ID,
			"user_id", ev.UserID,
			"at", ev.At,
		)
		return nil
	}
}
