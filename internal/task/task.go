package task

import (
	"context"

	"github.com/google/uuid"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/store"
)

// Task type constants
const (
	// TaskTypeImageRecognition is the task type for annotating an uploaded image.
	TaskTypeImageRecognition = "image_recognition"
)

// Task represents a unit of background work to be processed.
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Execute runs the task logic
	Execute(ctx context.Context) error
}

// ImageStore is the slice of the record store a recognition task needs:
// reading the record it drives and applying atomic lifecycle patches.
type ImageStore interface {
	// GetByID retrieves an image by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Image, error)

	// Update applies a partial update atomically and returns the updated record
	Update(ctx context.Context, id uuid.UUID, patch store.ImagePatch) (*domain.Image, error)
}

// Annotator defines the capability interface for recognition backends.
// The concrete cloud-backed implementation and test fakes both satisfy it.
type Annotator interface {
	// Annotate produces normalized annotations for the blob at location
	Annotate(ctx context.Context, location string) (*domain.Annotation, error)
}
