package generation

import (
	"context"
	"math"
	"sync"
	"unicode/utf8"
)

// Options governs a single generation call. Values come from server
// configuration, never from the API caller.
type Options struct {
	// MaxOutputTokens caps the generated length; zero leaves the backend default
	MaxOutputTokens int

	// Temperature controls sampling randomness
	Temperature float64
}

// Generator defines the interface for text generation backends.
// Implementations must be safe for concurrent use, or be wrapped with Serialized.
type Generator interface {
	// Generate returns the raw generated text for prompt.
	//
	// An empty string with a nil error, or an error matching ErrNoOutput or
	// ErrContentBlocked, means the backend produced no usable output.
	// Any other error is a fault.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

// GeneratorFunc adapts an ordinary function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, opts Options) (string, error)

// Generate calls f(ctx, prompt, opts).
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	return f(ctx, prompt, opts)
}

// OptionsPolicy derives the generation options for a prompt.
type OptionsPolicy interface {
	OptionsFor(prompt string) Options
}

// FixedOptions applies the same options to every prompt.
type FixedOptions Options

// OptionsFor returns the fixed options.
func (f FixedOptions) OptionsFor(string) Options {
	return Options(f)
}

// ScaledOptions sizes MaxOutputTokens from the prompt length:
// ceil(runes * TokensPerChar), clamped to [MinTokens, MaxTokens].
type ScaledOptions struct {
	MinTokens     int
	MaxTokens     int
	TokensPerChar float64
	Temperature   float64
}

// OptionsFor computes the scaled options for prompt.
func (s ScaledOptions) OptionsFor(prompt string) Options {
	tokens := int(math.Ceil(float64(utf8.RuneCountInString(prompt)) * s.TokensPerChar))
	if tokens < s.MinTokens {
		tokens = s.MinTokens
	}
	if s.MaxTokens > 0 && tokens > s.MaxTokens {
		tokens = s.MaxTokens
	}
	return Options{MaxOutputTokens: tokens, Temperature: s.Temperature}
}

// Serialized wraps g so at most one Generate call runs at a time.
func Serialized(g Generator) Generator {
	return &serializedGenerator{next: g}
}

type serializedGenerator struct {
	mu   sync.Mutex
	next Generator
}

func (s *serializedGenerator) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.next.Generate(ctx, prompt, opts)
}
