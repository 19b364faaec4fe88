// Package mocks provides scripted generation.Generator implementations for
// tests of the runner, the API and application wiring.
package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/gamegen-api/internal/generation"
)

// Call records one Generate invocation.
type Call struct {
	Prompt  string
	Options generation.Options
}

// MockGenerator implements generation.Generator with a configurable function.
type MockGenerator struct {
	// GenerateFn is called when set; otherwise Text and Err are returned.
	GenerateFn func(ctx context.Context, prompt string, opts generation.Options) (string, error)
	Text       string
	Err        error

	mu    sync.Mutex
	calls []Call
}

var _ generation.Generator = (*MockGenerator)(nil)

// NewStaticGenerator returns a generator that always yields text.
func NewStaticGenerator(text string) *MockGenerator {
	return &MockGenerator{Text: text}
}

// NewFailingGenerator returns a generator that always returns err.
func NewFailingGenerator(err error) *MockGenerator {
	return &MockGenerator{Err: err}
}

// Generate implements generation.Generator.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, opts generation.Options) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Prompt: prompt, Options: opts})
	fn := m.GenerateFn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, opts)
	}
	return m.Text, m.Err
}

// Calls returns a copy of the recorded invocations.
func (m *MockGenerator) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// BlockingGenerator holds every call until Release is called or the context
// ends, then returns Text.
type BlockingGenerator struct {
	Text string

	started chan string
	release chan struct{}
	once    sync.Once
}

var _ generation.Generator = (*BlockingGenerator)(nil)

// NewBlockingGenerator creates a BlockingGenerator. Started receives the
// prompt of each call as it begins; it is buffered to capacity.
func NewBlockingGenerator(text string, capacity int) *BlockingGenerator {
	return &BlockingGenerator{
		Text:    text,
		started: make(chan string, capacity),
		release: make(chan struct{}),
	}
}

// Generate implements generation.Generator.
func (b *BlockingGenerator) Generate(ctx context.Context, prompt string, _ generation.Options) (string, error) {
	select {
	case b.started <- prompt:
	default:
	}

	select {
	case <-b.release:
		return b.Text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Started reports calls as they begin.
func (b *BlockingGenerator) Started() <-chan string {
	return b.started
}

// Release unblocks all current and future calls.
func (b *BlockingGenerator) Release() {
	b.once.Do(func() { close(b.release) })
}
