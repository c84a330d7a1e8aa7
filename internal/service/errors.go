package service

import (
	"errors"
	"fmt"

	"github.com/tessling/optic-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// These errors represent conditions callers check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrInvalidImage indicates the upload failed validation (format or size).
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidImage = errors.New("invalid image upload")

	// ErrImageNotFound indicates the requested image does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrImageNotFound = errors.New("image not found")

	// ErrNotOwned indicates a resource is owned by a different user than
	// the one making the request.
	// API layer should map this to HTTP 403 Forbidden.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrStorage indicates a blob store failure during submission. No
	// record exists for the attempted upload when this is returned.
	// API layer should map this to HTTP 500 Internal Server Error.
	ErrStorage = errors.New("blob storage failure")
)

// ImageServiceError wraps errors from the image service with context.
type ImageServiceError struct {
	// Operation is the operation that failed (e.g., "upload_image", "delete_image")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ImageServiceError.
func (e *ImageServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("image service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ImageServiceError) Unwrap() error {
	return e.Err
}

// NewImageServiceError creates a new ImageServiceError.
// It returns known sentinel errors directly without wrapping.
func NewImageServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	// Service-defined sentinels pass through untouched.
	if errors.Is(err, ErrImageNotFound) ||
		errors.Is(err, ErrNotOwned) ||
		errors.Is(err, ErrInvalidImage) ||
		errors.Is(err, ErrStorage) {
		return err
	}

	// Store-level not-found maps to the service-level sentinel.
	if errors.Is(err, store.ErrNotFound) {
		return ErrImageNotFound
	}

	return &ImageServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
