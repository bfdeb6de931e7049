package queue

import (
	"context"
	"sync"

	"github.com/quenby/atelier-api/internal/generation"
)

// MockGenerator implements generation.Generator for testing. Each call's
// outcome is scripted through AttemptFn, keyed by the 0-based call number
// for that prompt, so tests can express sequences like "fail twice with
// 429, then succeed".
type MockGenerator struct {
	mutex    sync.Mutex
	attempts map[string]int
	started  []string

	// AttemptFn decides the outcome of one generation attempt. Returning
	// a non-nil error emits it as the stream's terminal result before any
	// image; returning nil emits count images and closes the stream. If
	// AttemptFn is nil every attempt succeeds.
	AttemptFn func(prompt string, attempt int) error

	// Release, when non-nil, gates every attempt: the generator emits
	// nothing until a value is received, letting tests hold tasks in the
	// running state deliberately.
	Release chan struct{}
}

// NewMockGenerator creates a MockGenerator whose attempts all succeed.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		attempts: make(map[string]int),
	}
}

// Generate implements generation.Generator.
func (g *MockGenerator) Generate(ctx context.Context, prompt string, count int) <-chan generation.Result {
	g.mutex.Lock()
	attempt := g.attempts[prompt]
	g.attempts[prompt] = attempt + 1
	g.started = append(g.started, prompt)
	g.mutex.Unlock()

	ch := make(chan generation.Result)
	go func() {
		defer close(ch)

		if g.Release != nil {
			select {
			case <-g.Release:
			case <-ctx.Done():
				ch <- generation.Result{Err: ctx.Err()}
				return
			}
		}

		if g.AttemptFn != nil {
			if err := g.AttemptFn(prompt, attempt); err != nil {
				select {
				case ch <- generation.Result{Err: err}:
				case <-ctx.Done():
				}
				return
			}
		}

		for i := 0; i < count; i++ {
			img := &generation.Image{MIMEType: "image/png", Data: []byte{0x89, 0x50, byte(i)}}
			select {
			case ch <- generation.Result{Image: img}:
			case <-ctx.Done():
				ch <- generation.Result{Err: ctx.Err()}
				return
			}
		}
	}()
	return ch
}

// Attempts returns how many generation attempts were made for prompt.
func (g *MockGenerator) Attempts(prompt string) int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.attempts[prompt]
}

// StartedPrompts returns the prompts of all attempts in the order the
// generator received them.
func (g *MockGenerator) StartedPrompts() []string {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return append([]string(nil), g.started...)
}
