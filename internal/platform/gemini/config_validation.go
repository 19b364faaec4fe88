package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/gamegen-api/internal/config"
	"github.com/phrazzld/gamegen-api/internal/generation"
)

// validateConfig rejects configurations the adapter cannot run with.
// Out-of-range retry settings are only warned about; defaults apply.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "missing gemini API key")
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		logger.ErrorContext(ctx, "missing model name")
		return fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.MaxRetries < 0 {
		logger.WarnContext(ctx, "invalid max_retries, using default",
			"value", cfg.MaxRetries,
			"default", defaultMaxRetries)
	}

	if cfg.RetryDelaySeconds < 1 {
		logger.WarnContext(ctx, "invalid retry_delay_seconds, using default",
			"value", cfg.RetryDelaySeconds,
			"default", defaultRetryDelay)
	}

	return nil
}
