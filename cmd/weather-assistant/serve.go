package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/weather-assistant/internal/api/http"
	"github.com/i474232898/weather-assistant/internal/scheduler"
	"github.com/i474232898/weather-assistant/internal/store"
	"github.com/i474232898/weather-assistant/internal/weather"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat and weather HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadServices()
			if err != nil {
				return err
			}
			return serve(rt)
		},
	}
}

func serve(rt *services) error {
	cfg := rt.cfg

	// Chat sessions, swept when idle.
	sessions := store.NewMemoryStore(rt.assistant.NewConversation)
	sweeper := scheduler.New(sessions, cfg.SessionSweepInterval, cfg.SessionMaxAge, rt.logger)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-assistant",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.LLMTimeout*2 + cfg.HTTPTimeout,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Sessions:    sessions,
		Resolver:    rt.selector,
		Credentials: weather.Credentials{WeatherAPIKey: cfg.WeatherAPIKey},
		Clock:       rt.clock,
		Metrics:     rt.metrics,
	})

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runServer(ctx, app, ":"+cfg.Port, rt.logger)
}

// runServer listens on addr until ctx is done, then shuts down gracefully.
// A listen failure is returned immediately.
func runServer(ctx context.Context, app *fiber.App, addr string, log *slog.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			log.Error("fiber server stopped", "error", err)
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
		return err
	}
	return nil
}
