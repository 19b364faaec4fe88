// Package main runs the gamegen-api server: an HTTP front end that accepts
// game-code prompts, generates Lua code in the background and lets clients
// poll for the result.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/gamegen-api/internal/config"
	"github.com/phrazzld/gamegen-api/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("gamegen-api: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"store_backend", cfg.Store.Backend,
		"worker_count", cfg.Task.WorkerCount,
		"unbounded", cfg.Task.Unbounded,
		"legacy_polling", cfg.API.LegacyPolling)

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}

// loadAppConfig loads configuration from GAMEGEN_CONFIG_FILE when set,
// otherwise from ./config.yaml and the environment.
func loadAppConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := os.Getenv("GAMEGEN_CONFIG_FILE"); path != "" {
		cfg, err = config.LoadFrom(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
