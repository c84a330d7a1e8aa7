package task

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/store"
	"github.com/tessling/optic-api/internal/store/memstore"
)

// fakeAnnotator satisfies Annotator with a canned response or failure.
type fakeAnnotator struct {
	result    *domain.Annotation
	err       error
	locations []string
}

func (a *fakeAnnotator) Annotate(_ context.Context, location string) (*domain.Annotation, error) {
	a.locations = append(a.locations, location)
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

func seedImage(t *testing.T, images *memstore.ImageStore) *domain.Image {
	t.Helper()
	img, err := domain.NewImage("user-1", "cat.jpg", "image/jpeg", 2048)
	require.NoError(t, err)
	img.BlobLocation = "/uploads/user-1/" + img.ID.String() + ".img"
	require.NoError(t, images.Create(context.Background(), img))
	return img
}

func TestNewRecognitionTaskValidatesDependencies(t *testing.T) {
	t.Parallel()
	images := memstore.New()
	annotator := &fakeAnnotator{}
	logger := slog.Default()

	_, err := NewRecognitionTask(uuid.Nil, images, annotator, logger)
	assert.ErrorIs(t, err, ErrEmptyImageID)

	_, err = NewRecognitionTask(uuid.New(), nil, annotator, logger)
	assert.ErrorIs(t, err, ErrNilImageStore)

	_, err = NewRecognitionTask(uuid.New(), images, nil, logger)
	assert.ErrorIs(t, err, ErrNilAnnotator)

	_, err = NewRecognitionTask(uuid.New(), images, annotator, nil)
	assert.ErrorIs(t, err, ErrNilLogger)

	task, err := NewRecognitionTask(uuid.New(), images, annotator, logger)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, task.ID())
	assert.Equal(t, TaskTypeImageRecognition, task.Type())
}

func TestExecuteSuccessWalksToCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	images := memstore.New()
	img := seedImage(t, images)

	annotator := &fakeAnnotator{
		result: &domain.Annotation{Labels: []domain.Label{{Name: "Cat", Confidence: 0.98}}},
	}

	task, err := NewRecognitionTask(img.ID, images, annotator, slog.Default())
	require.NoError(t, err)
	require.NoError(t, task.Execute(ctx))

	// The annotator was handed the record's blob location.
	require.Len(t, annotator.locations, 1)
	assert.Equal(t, img.BlobLocation, annotator.locations[0])

	got, err := images.GetByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, "Cat", got.Result.Labels[0].Name)
	assert.Empty(t, got.ErrorMessage)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.ProcessingTime)
	assert.GreaterOrEqual(t, *got.ProcessingTime, 0.0)
	assert.False(t, got.CompletedAt.Before(*got.StartedAt))
}

func TestExecuteFailureWalksToError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	images := memstore.New()
	img := seedImage(t, images)

	annotator := &fakeAnnotator{err: errors.New("vision quota exhausted")}

	task, err := NewRecognitionTask(img.ID, images, annotator, slog.Default())
	require.NoError(t, err)

	execErr := task.Execute(ctx)
	require.Error(t, execErr)

	got, err := images.GetByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageStatusError, got.Status)
	assert.Contains(t, got.ErrorMessage, "vision quota exhausted")
	assert.Nil(t, got.Result)
	require.NotNil(t, got.CompletedAt)
}

func TestExecuteMissingRecordFailsFast(t *testing.T) {
	t.Parallel()
	images := memstore.New()
	annotator := &fakeAnnotator{}

	task, err := NewRecognitionTask(uuid.New(), images, annotator, slog.Default())
	require.NoError(t, err)

	execErr := task.Execute(context.Background())
	assert.ErrorIs(t, execErr, store.ErrImageNotFound)
	assert.Empty(t, annotator.locations, "annotator must not be called without a record")
}

func TestFactoryCreatesWorkingTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	images := memstore.New()
	img := seedImage(t, images)

	factory := NewRecognitionTaskFactory(images, &fakeAnnotator{
		result: &domain.Annotation{},
	}, slog.Default())

	task, err := factory.CreateTask(img.ID)
	require.NoError(t, err)
	require.NoError(t, task.Execute(ctx))

	got, err := images.GetByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageStatusCompleted, got.Status)

	_, err = factory.CreateTask(uuid.Nil)
	assert.ErrorIs(t, err, ErrEmptyImageID)
}
