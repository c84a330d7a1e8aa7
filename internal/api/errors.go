package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tessling/optic-api/internal/api/shared"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/service"
	"github.com/tessling/optic-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authorization errors
	case errors.Is(err, service.ErrNotOwned):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, service.ErrInvalidImage),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	// Upload policy rejections carry messages we wrote ourselves, so the
	// full text is safe and tells the client what to fix.
	case errors.Is(err, service.ErrInvalidImage):
		msg := strings.TrimPrefix(err.Error(), service.ErrInvalidImage.Error()+": ")
		return strings.TrimPrefix(msg, domain.ErrValidation.Error()+": ")

	case errors.Is(err, service.ErrNotOwned):
		return "You do not own this image"

	case errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, store.ErrNotFound):
		return "Image not found"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid image ID"

	case errors.Is(err, domain.ErrValidation):
		return "Validation error"

	case errors.Is(err, service.ErrStorage):
		return "Failed to store image"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError maps an internal error to a status code and a sanitized
// message, then writes the response. When userMessage is non-empty it
// overrides the derived message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, status, userMessage, err)
}

