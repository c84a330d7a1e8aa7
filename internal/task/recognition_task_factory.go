package task

import (
	"log/slog"

	"github.com/google/uuid"
)

// RecognitionTaskFactory creates RecognitionTask instances
type RecognitionTaskFactory struct {
	images    ImageStore
	annotator Annotator
	logger    *slog.Logger
}

// NewRecognitionTaskFactory creates a new factory for RecognitionTasks
func NewRecognitionTaskFactory(
	images ImageStore,
	annotator Annotator,
	logger *slog.Logger,
) *RecognitionTaskFactory {
	return &RecognitionTaskFactory{
		images:    images,
		annotator: annotator,
		logger:    logger.With("component", "recognition_task_factory"),
	}
}

// CreateTask creates a new RecognitionTask for the specified image
func (f *RecognitionTaskFactory) CreateTask(imageID uuid.UUID) (Task, error) {
	t, err := NewRecognitionTask(
		imageID,
		f.images,
		f.annotator,
		f.logger,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
