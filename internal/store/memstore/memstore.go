// Package memstore provides the default in-memory ImageStore.
// All state is volatile; a process restart loses every record. The store
// serializes mutations behind a single RWMutex and hands out copies, so
// readers never observe a half-applied patch.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/store"
)

// ImageStore is an in-memory implementation of store.ImageStore.
type ImageStore struct {
	mu     sync.RWMutex
	images map[uuid.UUID]*domain.Image
}

// New creates an empty in-memory ImageStore.
func New() *ImageStore {
	return &ImageStore{
		images: make(map[uuid.UUID]*domain.Image),
	}
}

// Create saves a new image record to the store.
func (s *ImageStore) Create(_ context.Context, image *domain.Image) error {
	if err := image.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.images[image.ID]; exists {
		return fmt.Errorf("%w: image %s", store.ErrDuplicate, image.ID)
	}

	s.images[image.ID] = cloneImage(image)
	return nil
}

// GetByID retrieves an image by its unique ID.
func (s *ImageStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, exists := s.images[id]
	if !exists {
		return nil, store.ErrImageNotFound
	}
	return cloneImage(img), nil
}

// ListByOwner retrieves all images belonging to the given owner.
func (s *ImageStore) ListByOwner(_ context.Context, ownerID string) ([]*domain.Image, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*domain.Image, 0)
	for _, img := range s.images {
		if img.OwnerID == ownerID {
			results = append(results, cloneImage(img))
		}
	}
	return results, nil
}

// Update applies the patch under the write lock, so every field of a
// transition lands as one atomic operation.
func (s *ImageStore) Update(_ context.Context, id uuid.UUID, patch store.ImagePatch) (*domain.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, exists := s.images[id]
	if !exists {
		return nil, store.ErrImageNotFound
	}

	if err := patch.CheckTransition(img.Status); err != nil {
		return nil, err
	}

	applyPatch(img, patch)
	return cloneImage(img), nil
}

// Delete removes the record and reports whether it existed.
func (s *ImageStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.images[id]
	delete(s.images, id)
	return existed, nil
}

// CountsByStatus scans the live record set and returns aggregate counts.
func (s *ImageStore) CountsByStatus(_ context.Context) (store.StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := store.StatusCounts{Total: len(s.images)}
	for _, img := range s.images {
		switch img.Status {
		case domain.ImageStatusCompleted:
			counts.Completed++
		case domain.ImageStatusProcessing:
			counts.Processing++
		case domain.ImageStatusError:
			counts.Errors++
		}
	}
	return counts, nil
}

// applyPatch copies every non-nil patch field onto the record.
func applyPatch(img *domain.Image, patch store.ImagePatch) {
	if patch.Status != nil {
		img.Status = *patch.Status
	}
	if patch.Result != nil {
		img.Result = patch.Result
	}
	if patch.ErrorMessage != nil {
		img.ErrorMessage = *patch.ErrorMessage
	}
	if patch.StartedAt != nil {
		t := *patch.StartedAt
		img.StartedAt = &t
	}
	if patch.CompletedAt != nil {
		t := *patch.CompletedAt
		img.CompletedAt = &t
	}
	if patch.ProcessingTime != nil {
		d := *patch.ProcessingTime
		img.ProcessingTime = &d
	}
}

// cloneImage returns a copy that shares no mutable state with the stored
// record. The Annotation is shared by pointer: it is written exactly once
// at completion and treated as immutable afterwards.
func cloneImage(img *domain.Image) *domain.Image {
	c := *img
	if img.StartedAt != nil {
		t := *img.StartedAt
		c.StartedAt = &t
	}
	if img.CompletedAt != nil {
		t := *img.CompletedAt
		c.CompletedAt = &t
	}
	if img.ProcessingTime != nil {
		d := *img.ProcessingTime
		c.ProcessingTime = &d
	}
	return &c
}
