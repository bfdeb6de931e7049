package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quenby/atelier-api/internal/config"
	"github.com/quenby/atelier-api/internal/generation"
	"google.golang.org/genai"
)

// defaultMIMEType is assumed when the provider omits the content type.
const defaultMIMEType = "image/png"

// ImageGenerator implements the generation.Generator interface using
// Google's Gemini API to produce images from a text prompt.
type ImageGenerator struct {
	logger *slog.Logger
	config config.LLMConfig
	client *genai.Client
	model  string
}

// NewImageGenerator creates a new instance of ImageGenerator with the
// provided dependencies.
//
// Parameters:
//   - ctx: Context for the operation, which can be used for cancellation
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing the API key and image model name
//
// Returns:
//   - A properly initialized ImageGenerator or an error if initialization fails
func NewImageGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*ImageGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ImageModelName == "" {
		return nil, fmt.Errorf("%w: image model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			generation.ErrInvalidConfig, err)
	}

	return &ImageGenerator{
		logger: logger.With("component", "gemini_image_generator"),
		config: cfg,
		client: client,
		model:  cfg.ImageModelName,
	}, nil
}

// Generate implements generation.Generator. It requests images from the
// provider one at a time so each finished image reaches the caller (and
// durable storage) before the next provider call begins. The stream ends
// after count images, on the first provider failure, or when ctx is done.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string, count int) <-chan generation.Result {
	ch := make(chan generation.Result)

	go func() {
		defer close(ch)

		if prompt == "" {
			ch <- generation.Result{Err: fmt.Errorf("%w: prompt cannot be empty", generation.ErrGenerationFailed)}
			return
		}

		for i := 0; i < count; i++ {
			if ctx.Err() != nil {
				ch <- generation.Result{Err: ctx.Err()}
				return
			}

			g.logger.DebugContext(ctx, "requesting image from provider",
				"model", g.model,
				"image", i+1,
				"of", count)

			image, err := g.generateOne(ctx, prompt)
			if err != nil {
				ch <- generation.Result{Err: err}
				return
			}

			select {
			case ch <- generation.Result{Image: image}:
			case <-ctx.Done():
				ch <- generation.Result{Err: ctx.Err()}
				return
			}
		}
	}()

	return ch
}

// generateOne makes a single provider call producing exactly one image.
func (g *ImageGenerator) generateOne(ctx context.Context, prompt string) (*generation.Image, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, mapProviderError(err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return nil, fmt.Errorf("%w: no images generated", generation.ErrInvalidResponse)
	}

	generated := resp.GeneratedImages[0]
	if generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		return nil, fmt.Errorf("%w: empty image in response", generation.ErrInvalidResponse)
	}

	mimeType := generated.Image.MIMEType
	if mimeType == "" {
		mimeType = defaultMIMEType
	}

	return &generation.Image{
		MIMEType: mimeType,
		Data:     generated.Image.ImageBytes,
	}, nil
}

// mapProviderError converts a Gemini API error into the typed error the
// queue's classifier understands, preserving the provider status code.
// Context errors pass through untouched so the timeout race can tell
// deadline expiry from explicit cancellation.
func mapProviderError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("gemini: %w", generation.NewProviderError(apiErr.Code, apiErr.Message))
	}

	return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
}
