package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImageStatus represents the processing state of an uploaded image.
type ImageStatus string

// Possible image status values
const (
	ImageStatusPending    ImageStatus = "pending"
	ImageStatusProcessing ImageStatus = "processing"
	ImageStatusCompleted  ImageStatus = "completed"
	ImageStatusError      ImageStatus = "error"
)

// Common validation errors for Image
var (
	ErrEmptyImageID      = errors.New("image ID cannot be empty")
	ErrEmptyImageOwnerID = errors.New("image owner ID cannot be empty")
	ErrEmptyFilename     = errors.New("image filename cannot be empty")
)

// Image represents one uploaded image and its recognition lifecycle.
// The record tracks both the upload metadata and the processing state;
// Result and ErrorMessage are mutually exclusive and only set once the
// image reaches a terminal status.
type Image struct {
	ID             uuid.UUID   `json:"id"`
	OwnerID        string      `json:"ownerId"`
	Filename       string      `json:"filename"`
	Size           int64       `json:"size"`
	MimeType       string      `json:"mimeType"`
	BlobLocation   string      `json:"-"`
	Status         ImageStatus `json:"status"`
	Result         *Annotation `json:"result,omitempty"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`
	UploadedAt     time.Time   `json:"uploadedAt"`
	StartedAt      *time.Time  `json:"startedAt,omitempty"`
	CompletedAt    *time.Time  `json:"completedAt,omitempty"`
	ProcessingTime *float64    `json:"processingTime,omitempty"`
}

// NewImage creates a new Image with the given owner and upload metadata.
// It generates a new UUID for the image ID, sets the status to pending,
// and sets the upload timestamp. Returns an error if validation fails.
func NewImage(ownerID, filename, mimeType string, size int64) (*Image, error) {
	img := &Image{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Filename:   filename,
		Size:       size,
		MimeType:   mimeType,
		Status:     ImageStatusPending,
		UploadedAt: time.Now().UTC(),
	}

	if err := img.Validate(); err != nil {
		return nil, err
	}

	return img, nil
}

// Validate checks if the Image has valid data.
// Returns an error if any field fails validation.
func (i *Image) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyImageID
	}

	if i.OwnerID == "" {
		return ErrEmptyImageOwnerID
	}

	if i.Filename == "" {
		return ErrEmptyFilename
	}

	if !isValidImageStatus(i.Status) {
		return ErrInvalidImageStatus
	}

	return nil
}

// IsTerminal reports whether the status admits no further transitions.
func (s ImageStatus) IsTerminal() bool {
	return s == ImageStatusCompleted || s == ImageStatusError
}

// CanTransitionTo reports whether the lifecycle allows moving from the
// current status to next. The normal walk is
// pending -> processing -> completed|error; pending -> error covers jobs
// that fail before processing ever starts.
func (s ImageStatus) CanTransitionTo(next ImageStatus) bool {
	switch s {
	case ImageStatusPending:
		return next == ImageStatusProcessing || next == ImageStatusError
	case ImageStatusProcessing:
		return next == ImageStatusCompleted || next == ImageStatusError
	default:
		return false
	}
}

// isValidImageStatus checks if the given status is a valid ImageStatus.
func isValidImageStatus(status ImageStatus) bool {
	switch status {
	case ImageStatusPending, ImageStatusProcessing, ImageStatusCompleted, ImageStatusError:
		return true
	default:
		return false
	}
}

// UploadPolicy describes what the service accepts as an image upload.
type UploadPolicy struct {
	MinBytes     int64
	MaxBytes     int64
	AllowedTypes []string
}

// Default upload limits.
const (
	DefaultMinUploadBytes = 1000
	DefaultMaxUploadBytes = 20 * 1024 * 1024
)

// DefaultUploadPolicy returns the standard policy: JPEG, PNG or WebP
// between 1 KB and 20 MB.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MinBytes:     DefaultMinUploadBytes,
		MaxBytes:     DefaultMaxUploadBytes,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
	}
}

// Validate checks a declared mime type and payload size against the policy.
// Violations are wrapped in ErrValidation and name the violated constraint.
func (p UploadPolicy) Validate(mimeType string, size int64) error {
	allowed := false
	for _, t := range p.AllowedTypes {
		if t == mimeType {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: invalid image format %q, use JPEG, PNG, or WebP", ErrValidation, mimeType)
	}

	if size < p.MinBytes {
		return fmt.Errorf("%w: image is too small (min %d bytes)", ErrValidation, p.MinBytes)
	}

	if size > p.MaxBytes {
		return fmt.Errorf("%w: image size exceeds %d byte limit", ErrValidation, p.MaxBytes)
	}

	return nil
}
