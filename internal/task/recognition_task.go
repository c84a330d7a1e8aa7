package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/store"
)

// Common errors
var (
	ErrNilImageStore = errors.New("image store cannot be nil")
	ErrNilAnnotator  = errors.New("annotator cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyImageID  = errors.New("image ID cannot be empty")
)

// RecognitionTask drives one image through its lifecycle: it marks the
// record processing, invokes the recognition backend, and writes the
// terminal state back. Every transition is an atomic read-modify-write
// against the store; the task holds no private copy that can diverge.
type RecognitionTask struct {
	id        uuid.UUID
	imageID   uuid.UUID
	images    ImageStore
	annotator Annotator
	logger    *slog.Logger
}

// NewRecognitionTask creates a recognition task for the given image.
func NewRecognitionTask(
	imageID uuid.UUID,
	images ImageStore,
	annotator Annotator,
	logger *slog.Logger,
) (*RecognitionTask, error) {
	if images == nil {
		return nil, ErrNilImageStore
	}
	if annotator == nil {
		return nil, ErrNilAnnotator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if imageID == uuid.Nil {
		return nil, ErrEmptyImageID
	}

	return &RecognitionTask{
		id:        uuid.New(),
		imageID:   imageID,
		images:    images,
		annotator: annotator,
		logger:    logger.With("task_type", TaskTypeImageRecognition, "image_id", imageID),
	}, nil
}

// ID returns the task's unique identifier
func (t *RecognitionTask) ID() uuid.UUID {
	return t.id
}

// Type returns the task type identifier
func (t *RecognitionTask) Type() string {
	return TaskTypeImageRecognition
}

// Execute runs the recognition lifecycle. Backend failures do not
// propagate as task errors to anyone waiting; they are captured into the
// record's error state and become visible on the next status read. The
// returned error exists only so the runner's error handler can log it.
func (t *RecognitionTask) Execute(ctx context.Context) error {
	started := time.Now().UTC()

	processing := domain.ImageStatusProcessing
	img, err := t.images.Update(ctx, t.imageID, store.ImagePatch{
		Status:    &processing,
		StartedAt: &started,
	})
	if err != nil {
		t.logger.Error("failed to mark image processing", "error", err)
		return fmt.Errorf("failed to mark image processing: %w", err)
	}

	t.logger.Info("starting image recognition", "blob_location", img.BlobLocation)

	result, err := t.annotator.Annotate(ctx, img.BlobLocation)
	if err != nil {
		return t.fail(ctx, err)
	}

	completed := time.Now().UTC()
	seconds := completed.Sub(started).Seconds()
	status := domain.ImageStatusCompleted

	if _, err := t.images.Update(ctx, t.imageID, store.ImagePatch{
		Status:         &status,
		Result:         result,
		CompletedAt:    &completed,
		ProcessingTime: &seconds,
	}); err != nil {
		t.logger.Error("failed to record recognition result", "error", err)
		return fmt.Errorf("failed to record recognition result: %w", err)
	}

	t.logger.Info("image recognition completed", "processing_time_seconds", seconds)
	return nil
}

// fail writes the terminal error state for any backend failure.
func (t *RecognitionTask) fail(ctx context.Context, cause error) error {
	t.logger.Error("image recognition failed", "error", cause)

	completed := time.Now().UTC()
	status := domain.ImageStatusError
	message := cause.Error()

	if _, err := t.images.Update(ctx, t.imageID, store.ImagePatch{
		Status:       &status,
		ErrorMessage: &message,
		CompletedAt:  &completed,
	}); err != nil {
		t.logger.Error("failed to record recognition failure", "error", err)
		return fmt.Errorf("failed to record recognition failure: %w (original: %v)", err, cause)
	}

	return fmt.Errorf("image recognition failed: %w", cause)
}
