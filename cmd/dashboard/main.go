package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/region-weather-dashboard/internal/api/http"
	"github.com/i474232898/region-weather-dashboard/internal/config"
	"github.com/i474232898/region-weather-dashboard/internal/scheduler"
	"github.com/i474232898/region-weather-dashboard/internal/store"
	"github.com/i474232898/region-weather-dashboard/internal/weather"
	"github.com/i474232898/region-weather-dashboard/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound Open-Meteo calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider := providers.NewOpenMeteoProvider(httpClient, cfg.OpenMeteoBaseURL, cfg.Timezone, providers.BackoffConfig{
		MaxAttempts: cfg.FetchRetries,
		Base:        cfg.BackoffBase,
		Max:         cfg.BackoffMax,
	})

	// Session-scoped fetch memoization plus the prefetched file on disk.
	cache := weather.NewCache[weather.Table](cfg.CacheTTL)
	csvStore := store.NewCSVStore(cfg.PrefetchPath)

	// Core service orchestrating per-region fetches.
	service := weather.NewService(provider, cache, cfg.PoliteDelay)

	// Optional periodic prefetch refresh.
	sched := scheduler.New(cfg.Regions, cfg.PrefetchStart, cfg.PrefetchRefreshInterval, service, csvStore)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "region-weather-dashboard",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "region-weather-dashboard",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, csvStore, cfg.Regions)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
