package generation

import (
	"errors"
	"fmt"
)

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when image generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate images from prompt")

	// ErrInvalidResponse is returned when the provider response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from image provider")

	// ErrContentBlocked is returned when the provider blocks the prompt due to safety filters
	ErrContentBlocked = errors.New("content blocked by image provider safety filters")

	// ErrInsufficientBalance is returned when the provider account has run out of credit
	ErrInsufficientBalance = errors.New("insufficient balance for image generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// ProviderError is a typed error carrying the HTTP status code the external
// provider returned alongside its message. The queue's error classifier uses
// the status code to decide whether a failed attempt is worth retrying and
// whether it was rate limited.
type ProviderError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

// NewProviderError creates a ProviderError with the given status code and message.
func NewProviderError(statusCode int, message string) *ProviderError {
	return &ProviderError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// ProviderStatusCode extracts the provider HTTP status code from err, if any.
// Returns 0 and false when err does not wrap a *ProviderError.
func ProviderStatusCode(err error) (int, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.StatusCode, true
	}
	return 0, false
}
