package generation

import "context"

// Image is one unit of provider output: the raw bytes of a single
// generated image. The queue stamps images into domain artifacts with
// their task identity and position.
type Image struct {
	MIMEType string
	Data     []byte
}

// Result carries one element of a generation stream: either a single
// produced image or the terminal error that ended the stream. Exactly
// one of the two fields is set.
type Result struct {
	Image *Image
	Err   error
}

// Generator defines the interface for producing images from a prompt.
// This interface serves as a boundary between the application core and
// the external image-generation provider, following the hexagonal
// architecture pattern.
//
// Generate returns a lazy, finite, non-restartable stream of results.
// Images are sent in the order the provider yields them, one at a time,
// so the caller can persist partial progress before the whole batch
// completes. The channel is closed after the final image or after a
// Result carrying a terminal error; no further results follow an error.
// Implementations must honor ctx cancellation and stop the in-flight
// provider call when the context is done.
//
// Provider failures are surfaced as errors that wrap *ProviderError
// when an HTTP status code from the provider is available, so callers
// can classify them (see errors.go).
type Generator interface {
	Generate(ctx context.Context, prompt string, count int) <-chan Result
}
