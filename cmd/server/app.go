package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/gamegen-api/internal/config"
	"github.com/phrazzld/gamegen-api/internal/generation"
	"github.com/phrazzld/gamegen-api/internal/platform/gemini"
	"github.com/phrazzld/gamegen-api/internal/platform/memory"
	"github.com/phrazzld/gamegen-api/internal/platform/metrics"
	"github.com/phrazzld/gamegen-api/internal/platform/postgres"
	"github.com/phrazzld/gamegen-api/internal/platform/redis"
	"github.com/phrazzld/gamegen-api/internal/postprocess"
	"github.com/phrazzld/gamegen-api/internal/store"
	"github.com/phrazzld/gamegen-api/internal/task"
	goredis "github.com/redis/go-redis/v9"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Connections owned by the application, closed in cleanup
	db    *sql.DB
	redis *goredis.Client

	taskStore store.TaskStore
	generator generation.Generator
	cleaner   postprocess.Cleaner
	metrics   *metrics.Metrics

	taskRunner *task.Runner
}

// appOption overrides a dependency, mainly for tests.
type appOption func(*application)

// withGenerator replaces the Gemini generator.
func withGenerator(g generation.Generator) appOption {
	return func(app *application) {
		app.generator = g
	}
}

// newApplication connects the configured store, builds the generator and
// starts the task runner.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...appOption) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		metrics: metrics.New(),
	}
	for _, opt := range opts {
		opt(app)
	}

	var err error
	app.taskStore, err = app.setupStore(ctx)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to set up task store: %w", err)
	}

	if app.generator == nil {
		app.generator, err = gemini.NewGeminiGenerator(ctx, logger, cfg.LLM)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
		}
		logger.Info("LLM generator initialized", "model", cfg.LLM.ModelName)
	}
	if cfg.LLM.SerializeCalls {
		app.generator = generation.Serialized(app.generator)
	}

	app.cleaner = postprocess.NewMarkerCleaner(cfg.LLM.Marker)

	app.taskRunner = task.NewRunner(
		app.taskStore,
		app.generator,
		optionsPolicy(cfg.LLM),
		app.cleaner,
		runnerConfig(cfg.Task),
		logger,
		task.WithMetrics(app.metrics),
	)
	if err := app.taskRunner.Start(); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// setupStore opens the backend named by store.backend.
func (app *application) setupStore(ctx context.Context) (store.TaskStore, error) {
	cfg := app.config

	switch cfg.Store.Backend {
	case config.StoreBackendMemory, "":
		app.logger.Info("using in-memory task store")
		return memory.NewTaskStore(), nil

	case config.StoreBackendPostgres:
		db, err := postgres.Open(ctx, cfg.Database.URL, app.logger)
		if err != nil {
			return nil, err
		}
		app.db = db

		if cfg.Database.AutoMigrate {
			if err := postgres.Migrate(ctx, db, app.logger); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		app.logger.Info("using postgres task store")
		return postgres.NewTaskStore(db, app.logger), nil

	case config.StoreBackendRedis:
		client, err := redis.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		app.redis = client
		app.logger.Info("using redis task store", "key_prefix", cfg.Redis.KeyPrefix)
		return redis.NewTaskStore(client, cfg.Redis.KeyPrefix, app.logger), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// optionsPolicy scales the token limit with the prompt when a per-char rate
// is configured, otherwise applies the fixed limit.
func optionsPolicy(cfg config.LLMConfig) generation.OptionsPolicy {
	if cfg.TokensPerPromptChar > 0 {
		return generation.ScaledOptions{
			MinTokens:     cfg.MinOutputTokens,
			MaxTokens:     cfg.MaxOutputTokens,
			TokensPerChar: cfg.TokensPerPromptChar,
			Temperature:   cfg.Temperature,
		}
	}
	return generation.FixedOptions{
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
	}
}

func runnerConfig(cfg config.TaskConfig) task.RunnerConfig {
	return task.RunnerConfig{
		WorkerCount:            cfg.WorkerCount,
		QueueSize:              cfg.QueueSize,
		Unbounded:              cfg.Unbounded,
		GenerationTimeout:      time.Duration(cfg.GenerationTimeoutSeconds) * time.Second,
		Retention:              time.Duration(cfg.RetentionMinutes) * time.Minute,
		RetentionCheckInterval: time.Duration(cfg.RetentionCheckIntervalSeconds) * time.Second,
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the runner and closes store connections. Safe to call on a
// partially initialized application.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	var errs []error
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("error closing connections", "error", err)
	}

	app.logger.Info("application shutdown completed")
}
