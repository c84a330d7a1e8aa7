package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/store"
	"github.com/tessling/optic-api/internal/task"
)

// DefaultHistoryLimit bounds ListForOwner when the caller passes no limit.
const DefaultHistoryLimit = 20

// Advisory messages returned alongside non-terminal statuses. They are
// hints for polling clients, not authoritative state.
const (
	MessagePending    = "Waiting to be processed."
	MessageProcessing = "Still processing. Check again in 2 seconds."
	MessageAccepted   = "Image uploaded successfully. Processing started."
)

// ImageRepository defines the repository interface for the service layer.
// This is aligned with store.ImageStore to ensure proper separation of concerns.
type ImageRepository interface {
	// Create saves a new image record to the store
	Create(ctx context.Context, image *domain.Image) error

	// GetByID retrieves an image by its unique ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Image, error)

	// ListByOwner retrieves all images belonging to the given owner
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Image, error)

	// Update applies a partial update atomically and returns the updated record
	Update(ctx context.Context, id uuid.UUID, patch store.ImagePatch) (*domain.Image, error)

	// Delete removes the record and reports whether it existed
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// CountsByStatus scans the live record set and returns aggregate counts
	CountsByStatus(ctx context.Context) (store.StatusCounts, error)
}

// BlobStore defines the blob storage interface for the service layer.
type BlobStore interface {
	// Put stores raw image bytes and returns an opaque location handle
	Put(ctx context.Context, ownerID string, imageID uuid.UUID, data []byte) (string, error)

	// Delete removes the blob at location, reporting success. Failures
	// are best-effort: the store logs them and the caller moves on.
	Delete(ctx context.Context, location string) bool
}

// TaskRunner defines the interface for submitting background tasks.
type TaskRunner interface {
	// Submit schedules a task for background execution without waiting for it
	Submit(ctx context.Context, t task.Task) error
}

// RecognitionTaskFactory creates recognition tasks for submitted images.
type RecognitionTaskFactory interface {
	// CreateTask creates a new recognition task for the specified image
	CreateTask(imageID uuid.UUID) (task.Task, error)
}

// Upload carries the fields an upstream multipart layer has already parsed.
type Upload struct {
	Filename string
	MimeType string
	Data     []byte
}

// Results is the per-status response shape for a status poll. Exactly
// the fields appropriate for the status are populated; an errored job is
// still a normal response, with the failure in Error.
type Results struct {
	ImageID        string             `json:"imageId"`
	Status         domain.ImageStatus `json:"status"`
	Results        *domain.Annotation `json:"results,omitempty"`
	ProcessingTime *float64           `json:"processingTime,omitempty"`
	Timestamp      *time.Time         `json:"timestamp,omitempty"`
	Error          string             `json:"error,omitempty"`
	Message        string             `json:"message,omitempty"`
}

// Summary is one row of an owner's upload history.
type Summary struct {
	ImageID    string             `json:"imageId"`
	Filename   string             `json:"filename"`
	Timestamp  time.Time          `json:"timestamp"`
	Status     domain.ImageStatus `json:"status"`
	TopLabel   string             `json:"topLabel,omitempty"`
	Confidence *float64           `json:"confidence,omitempty"`
}

// ImageService provides image upload and recognition lifecycle operations.
type ImageService interface {
	// Upload validates and stores an image, creates its pending record,
	// and schedules background recognition. Returns the created record
	// immediately; recognition progress is observed via GetResults.
	Upload(ctx context.Context, ownerID string, upload Upload) (*domain.Image, error)

	// GetResults returns the current state of a job in its per-status shape.
	GetResults(ctx context.Context, imageID uuid.UUID) (*Results, error)

	// ListForOwner returns the owner's uploads, most recent first,
	// truncated to limit (DefaultHistoryLimit when limit <= 0).
	ListForOwner(ctx context.Context, ownerID string, limit int) ([]Summary, error)

	// Delete removes a job and its blob after an ownership check.
	Delete(ctx context.Context, imageID uuid.UUID, ownerID string) error

	// Stats returns aggregate counts over the live record set.
	Stats(ctx context.Context) (store.StatusCounts, error)
}

// imageServiceImpl implements the ImageService interface
type imageServiceImpl struct {
	images      ImageRepository
	blobs       BlobStore
	taskRunner  TaskRunner
	taskFactory RecognitionTaskFactory
	policy      domain.UploadPolicy
	logger      *slog.Logger
}

// NewImageService creates a new ImageService.
// It returns an error if any of the required dependencies are nil.
func NewImageService(
	images ImageRepository,
	blobs BlobStore,
	taskRunner TaskRunner,
	taskFactory RecognitionTaskFactory,
	policy domain.UploadPolicy,
	logger *slog.Logger,
) (ImageService, error) {
	if images == nil {
		return nil, &ImageServiceError{Operation: "create_service", Message: "images cannot be nil"}
	}
	if blobs == nil {
		return nil, &ImageServiceError{Operation: "create_service", Message: "blobs cannot be nil"}
	}
	if taskRunner == nil {
		return nil, &ImageServiceError{Operation: "create_service", Message: "taskRunner cannot be nil"}
	}
	if taskFactory == nil {
		return nil, &ImageServiceError{Operation: "create_service", Message: "taskFactory cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &imageServiceImpl{
		images:      images,
		blobs:       blobs,
		taskRunner:  taskRunner,
		taskFactory: taskFactory,
		policy:      policy,
		logger:      logger.With("component", "image_service"),
	}, nil
}

// Upload validates the payload, stores the blob, creates the pending
// record, then schedules recognition. The record is visible as pending
// before the background unit is scheduled, so a status query immediately
// after Upload returns can never miss it. On any failure before the
// record exists, nothing is left behind.
func (s *imageServiceImpl) Upload(ctx context.Context, ownerID string, upload Upload) (*domain.Image, error) {
	if err := s.policy.Validate(upload.MimeType, int64(len(upload.Data))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	img, err := domain.NewImage(ownerID, upload.Filename, upload.MimeType, int64(len(upload.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	location, err := s.blobs.Put(ctx, ownerID, img.ID, upload.Data)
	if err != nil {
		s.logger.Error("failed to store image blob",
			"error", err,
			"image_id", img.ID,
			"owner_id", ownerID)
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	img.BlobLocation = location

	if err := s.images.Create(ctx, img); err != nil {
		// All-or-nothing: an orphaned blob without a record is removed.
		s.blobs.Delete(ctx, location)
		s.logger.Error("failed to create image record",
			"error", err,
			"image_id", img.ID,
			"owner_id", ownerID)
		return nil, NewImageServiceError("upload_image", "failed to save image record", err)
	}

	s.logger.Info("image accepted with pending status",
		"image_id", img.ID,
		"owner_id", ownerID,
		"size", img.Size)

	s.scheduleRecognition(ctx, img.ID)

	return img, nil
}

// scheduleRecognition spawns the fire-and-forget background unit. The
// record already exists, so a scheduling failure cannot surface to the
// upload caller; it is routed through the state machine like any other
// background failure.
func (s *imageServiceImpl) scheduleRecognition(ctx context.Context, imageID uuid.UUID) {
	t, err := s.taskFactory.CreateTask(imageID)
	if err == nil {
		err = s.taskRunner.Submit(ctx, t)
	}
	if err == nil {
		return
	}

	s.logger.Error("failed to schedule recognition task",
		"error", err,
		"image_id", imageID)

	status := domain.ImageStatusError
	message := fmt.Sprintf("failed to schedule recognition: %v", err)
	now := time.Now().UTC()
	if _, updateErr := s.images.Update(ctx, imageID, store.ImagePatch{
		Status:       &status,
		ErrorMessage: &message,
		CompletedAt:  &now,
	}); updateErr != nil {
		s.logger.Error("failed to record scheduling failure",
			"error", updateErr,
			"image_id", imageID)
	}
}

// GetResults reads the record and shapes the response by status.
func (s *imageServiceImpl) GetResults(ctx context.Context, imageID uuid.UUID) (*Results, error) {
	img, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, NewImageServiceError("get_results", "failed to read image record", err)
	}

	res := &Results{
		ImageID: img.ID.String(),
		Status:  img.Status,
	}

	switch img.Status {
	case domain.ImageStatusCompleted:
		res.Results = img.Result
		res.ProcessingTime = img.ProcessingTime
		res.Timestamp = img.CompletedAt
	case domain.ImageStatusProcessing:
		res.Message = MessageProcessing
	case domain.ImageStatusError:
		res.Error = img.ErrorMessage
	default:
		res.Message = MessagePending
	}

	return res, nil
}

// ListForOwner orders by upload time descending and projects summaries.
func (s *imageServiceImpl) ListForOwner(ctx context.Context, ownerID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	images, err := s.images.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewImageServiceError("list_images", "failed to list image records", err)
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].UploadedAt.After(images[j].UploadedAt)
	})
	if len(images) > limit {
		images = images[:limit]
	}

	summaries := make([]Summary, 0, len(images))
	for _, img := range images {
		summary := Summary{
			ImageID:   img.ID.String(),
			Filename:  img.Filename,
			Timestamp: img.UploadedAt,
			Status:    img.Status,
		}
		if top := img.Result.TopLabel(); top != nil {
			summary.TopLabel = top.Name
			confidence := top.Confidence
			summary.Confidence = &confidence
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// Delete enforces ownership, then removes the blob (best-effort) and the
// record. A blob that refuses to die never blocks record deletion.
func (s *imageServiceImpl) Delete(ctx context.Context, imageID uuid.UUID, ownerID string) error {
	img, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrImageNotFound
		}
		return NewImageServiceError("delete_image", "failed to read image record", err)
	}

	if img.OwnerID != ownerID {
		s.logger.Warn("refused cross-owner image deletion",
			"image_id", imageID,
			"owner_id", img.OwnerID,
			"caller_id", ownerID)
		return ErrNotOwned
	}

	if img.BlobLocation != "" && !s.blobs.Delete(ctx, img.BlobLocation) {
		s.logger.Warn("failed to delete image blob, removing record anyway",
			"image_id", imageID,
			"blob_location", img.BlobLocation)
	}

	existed, err := s.images.Delete(ctx, imageID)
	if err != nil {
		return NewImageServiceError("delete_image", "failed to delete image record", err)
	}
	if !existed {
		return ErrImageNotFound
	}

	s.logger.Info("image deleted", "image_id", imageID, "owner_id", ownerID)
	return nil
}

// Stats delegates to the store's aggregate scan.
func (s *imageServiceImpl) Stats(ctx context.Context) (store.StatusCounts, error) {
	counts, err := s.images.CountsByStatus(ctx)
	if err != nil {
		return store.StatusCounts{}, NewImageServiceError("stats", "failed to aggregate counts", err)
	}
	return counts, nil
}
