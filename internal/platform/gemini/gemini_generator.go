package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/phrazzld/gamegen-api/internal/config"
	"github.com/phrazzld/gamegen-api/internal/generation"
	"google.golang.org/genai"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2
)

// contentGenerator is the subset of the genai models service the adapter
// calls. *genai.Models satisfies it.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements generation.Generator using the Gemini API.
type GeminiGenerator struct {
	logger         *slog.Logger
	client         contentGenerator
	model          string
	promptTemplate *template.Template
	maxRetries     int
	baseDelay      time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates a generator with a live genai client.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return newGenerator(logger, cfg, client.Models)
}

func newGenerator(logger *slog.Logger, cfg config.LLMConfig, client contentGenerator) (*GeminiGenerator, error) {
	tmpl, err := loadPromptTemplate(cfg.PromptTemplatePath)
	if err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	delaySeconds := cfg.RetryDelaySeconds
	if delaySeconds < 1 {
		delaySeconds = defaultRetryDelay
	}

	return &GeminiGenerator{
		logger:         logger.With("component", "gemini_generator"),
		client:         client,
		model:          cfg.ModelName,
		promptTemplate: tmpl,
		maxRetries:     maxRetries,
		baseDelay:      time.Duration(delaySeconds) * time.Second,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Generate sends prompt to the model and returns the concatenated text of
// the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts generation.Options) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	rendered, err := renderPrompt(g.promptTemplate, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
	}

	return g.callWithRetry(ctx, rendered, buildConfig(opts))
}

func buildConfig(opts generation.Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}
	return cfg
}

// callWithRetry calls the model up to maxRetries+1 times. Only transient
// errors are retried; the delay doubles each attempt with 50-100% jitter.
func (g *GeminiGenerator) callWithRetry(
	ctx context.Context,
	prompt string,
	genConfig *genai.GenerateContentConfig,
) (string, error) {
	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		g.logger.DebugContext(ctx, "calling gemini",
			"attempt", attemptNum,
			"max_attempts", g.maxRetries+1,
			"prompt_length", len(prompt))

		resp, err := g.client.GenerateContent(ctx, g.model, genai.Text(prompt), genConfig)
		if err == nil {
			text, extractErr := extractText(resp)
			if extractErr != nil {
				g.logger.WarnContext(ctx, "gemini returned no usable output",
					"attempt", attemptNum,
					"error", extractErr)
				return "", extractErr
			}
			g.logger.DebugContext(ctx, "gemini call succeeded",
				"attempt", attemptNum,
				"output_length", len(text))
			return text, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, ctxErr)
		}

		if !isTransient(err) {
			g.logger.WarnContext(ctx, "permanent gemini error, not retrying",
				"attempt", attemptNum,
				"error", err)
			return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}

		if attempt >= g.maxRetries {
			g.logger.WarnContext(ctx, "maximum retry attempts reached",
				"max_retries", g.maxRetries,
				"error", err)
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, g.maxRetries, err)
		}

		delay := g.backoff(attempt)
		g.logger.InfoContext(ctx, "retrying gemini call after delay",
			"attempt", attemptNum,
			"delay", delay.String(),
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}
}

// backoff returns baseDelay * 2^attempt * (0.5 + rand[0, 0.5)).
func (g *GeminiGenerator) backoff(attempt int) time.Duration {
	g.rngMu.Lock()
	jitter := 0.5 + g.rng.Float64()*0.5
	g.rngMu.Unlock()

	return time.Duration(float64(g.baseDelay) * math.Pow(2, float64(attempt)) * jitter)
}

// extractText pulls the text parts out of the first candidate.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", generation.ErrNoOutput)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)",
			generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", fmt.Errorf("%w: no candidates in response", generation.ErrNoOutput)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: response blocked by safety filters", generation.ErrContentBlocked)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in candidate", generation.ErrNoOutput)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// isTransient reports whether err is worth retrying: rate limits, server
// errors and anything that is not a structured API error.
func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return transientCode(apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return transientCode(apiErrPtr.Code)
	}
	return true
}

func transientCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout ||
		code >= http.StatusInternalServerError
}
