package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/quenby/atelier-api/internal/domain"
	"github.com/quenby/atelier-api/internal/queue"
	"github.com/quenby/atelier-api/internal/store"
)

// MapErrorToStatusCode maps domain, store, and queue errors to the HTTP
// status code the client should see.
func MapErrorToStatusCode(err error) int {
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests
	case errors.Is(err, queue.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrEmptyTaskPrompt),
		errors.Is(err, domain.ErrInvalidImageCount),
		errors.Is(err, domain.ErrEmptyTaskUserID),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a client-facing message for err. Internal
// errors are collapsed to a generic message so that database or provider
// details never leak into responses.
func GetSafeErrorMessage(err error) string {
	switch MapErrorToStatusCode(err) {
	case http.StatusInternalServerError:
		return "an internal error occurred"
	default:
		return err.Error()
	}
}
