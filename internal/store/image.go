package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tessling/optic-api/internal/domain"
)

// ImagePatch is a partial update against an image record. Nil fields are
// left untouched; all non-nil fields are applied as one atomic operation,
// so a concurrent read never observes a status without the fields that
// belong to it.
type ImagePatch struct {
	Status         *domain.ImageStatus
	Result         *domain.Annotation
	ErrorMessage   *string
	StartedAt      *time.Time
	CompletedAt    *time.Time
	ProcessingTime *float64
}

// CheckTransition validates the patch's status change against the
// lifecycle, given the record's current status. Patches that leave the
// status alone always pass. Returns ErrInvalidTransition otherwise.
func (p ImagePatch) CheckTransition(current domain.ImageStatus) error {
	if p.Status == nil || *p.Status == current {
		return nil
	}
	if !current.CanTransitionTo(*p.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, *p.Status)
	}
	return nil
}

// StatusCounts aggregates live image records by status. Pending records
// count toward Total but have no bucket of their own, so the three
// buckets sum to Total only once every job has left pending.
type StatusCounts struct {
	Total      int `json:"totalImages"`
	Completed  int `json:"completed"`
	Processing int `json:"processing"`
	Errors     int `json:"errors"`
}

// ImageStore defines the interface for image record persistence.
// It is the single source of truth for status queries; implementations
// must serialize mutations per ID and never return torn records.
type ImageStore interface {
	// Create saves a new image record to the store.
	// Returns validation errors from the domain Image if data is invalid,
	// or ErrDuplicate if the ID is already present.
	Create(ctx context.Context, image *domain.Image) error

	// GetByID retrieves an image by its unique ID.
	// Returns ErrImageNotFound if the image does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Image, error)

	// ListByOwner retrieves all images belonging to the given owner,
	// in no particular order. Returns an empty slice if none exist.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Image, error)

	// Update applies the patch to an existing record atomically and
	// returns the updated record.
	// Returns ErrImageNotFound if the image does not exist, or
	// ErrInvalidTransition if the patch moves the status illegally.
	Update(ctx context.Context, id uuid.UUID, patch ImagePatch) (*domain.Image, error)

	// Delete removes the record and reports whether it existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// CountsByStatus scans the live record set and returns aggregate counts.
	CountsByStatus(ctx context.Context) (StatusCounts, error)
}
