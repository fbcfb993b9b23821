// Package app wires configuration, stores, services and routes into a runnable fiber app.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dailyscrum/internal/cache"
	"dailyscrum/internal/config"
	"dailyscrum/internal/handlers"
	"dailyscrum/internal/middleware"
	"dailyscrum/internal/services"
	"dailyscrum/internal/storage"
	"dailyscrum/internal/upload"
	"dailyscrum/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// maxBodySize bounds a request body, attachments included.
const maxBodySize = 64 << 20

// App is the assembled service.
type App struct {
	Fiber *fiber.App
	Auth  *services.AuthService
	// Events is nil when RABBITMQ_URL is empty.
	Events *rabbitmq.Client

	logger  *slog.Logger
	closers []func() error
}

// New connects every backing store and builds the HTTP app. A store that
// cannot be reached fails construction; the cache is the exception and is
// skipped with a warning.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{logger: logger}
	built := false
	defer func() {
		if !built {
			a.Close()
		}
	}()

	repos, err := a.openRepositories(ctx, cfg)
	if err != nil {
		return nil, err
	}
	readCache := a.openCache(ctx, cfg)

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			return nil, err
		}
		a.Events = client
		a.closers = append(a.closers, client.Close)
		publisher = client
	}

	a.Auth = services.NewAuthService(repos.users, cfg.JWTSecret, cfg.TokenTTL)
	postService := services.NewDailyScrumService(repos.posts, upload.NewIngester(blobs, logger), blobs, readCache, publisher, logger)
	titleService := services.NewTitleService(repos.titles, repos.users, readCache, publisher, logger)
	fileService := services.NewFileService(blobs, cfg.Storage.Driver == storage.DriverS3)

	a.Fiber = newFiber(cfg)
	a.Fiber.Get("/health", a.handleHealth)

	requireAuth := middleware.AuthRequired(a.Auth)
	handlers.NewAuthHandler(a.Auth).RegisterRoutes(a.Fiber, requireAuth)
	handlers.NewDailyScrumHandler(postService, cfg.MaxUploadFiles).RegisterRoutes(a.Fiber, requireAuth)
	handlers.NewTitleHandler(titleService).RegisterRoutes(a.Fiber, requireAuth)
	handlers.NewFileHandler(fileService).RegisterRoutes(a.Fiber, requireAuth)

	logger.Info("app initialized",
		"db", cfg.DBDriver,
		"cache", cfg.CacheDriver,
		"storage", cfg.Storage.Driver,
		"events", a.Events != nil,
	)
	built = true
	return a, nil
}

func newFiber(cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "dailyscrum",
		BodyLimit:    maxBodySize,
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New()) // Request logger
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.FrontendURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	return app
}

// errorHandler renders errors that escape a handler, such as unknown routes,
// in the same envelope handlers use.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("unhandled error", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{
		"message": "Request failed",
		"error":   err.Error(),
	})
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	events := "disabled"
	if a.Events != nil {
		events = "connected"
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
		"events": events,
	})
}

// Close releases every connection opened by New, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openCache(ctx context.Context, cfg config.Config) *cache.Cache {
	switch cfg.CacheDriver {
	case config.CacheRedis:
		client, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.logger.Warn("running without a read cache", "error", err)
			return nil
		}
		a.closers = append(a.closers, client.Close)
		return cache.New(cache.NewRedisStore(client), cfg.CacheTTL, a.logger)
	default:
		return cache.New(cache.NewMemoryStore(cfg.CacheSize, cfg.CacheTTL), cfg.CacheTTL, a.logger)
	}
}
