package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/store"
)

func newTestImage(t *testing.T, ownerID string) *domain.Image {
	t.Helper()
	img, err := domain.NewImage(ownerID, "cat.jpg", "image/jpeg", 2048)
	require.NoError(t, err)
	img.BlobLocation = "/uploads/" + ownerID + "/" + img.ID.String() + ".jpg"
	return img
}

func statusPtr(s domain.ImageStatus) *domain.ImageStatus { return &s }

func TestCreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	img := newTestImage(t, "user-1")
	require.NoError(t, s.Create(ctx, img))

	got, err := s.GetByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.ID, got.ID)
	assert.Equal(t, "user-1", got.OwnerID)
	assert.Equal(t, domain.ImageStatusPending, got.Status)

	// Mutating the returned copy must not leak into the store.
	got.Status = domain.ImageStatusCompleted
	again, err := s.GetByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageStatusPending, again.Status)
}

func TestCreateDuplicateID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	img := newTestImage(t, "user-1")
	require.NoError(t, s.Create(ctx, img))

	err := s.Create(ctx, img)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestGetByIDNotFound(t *testing.T) {
	t.Parallel()
	s := New()

	_, err := s.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrImageNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func TestUpdateAppliesPatchAtomically(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	img := newTestImage(t, "user-1")
	require.NoError(t, s.Create(ctx, img))

	started := time.Now().UTC()
	_, err := s.Update(ctx, img.ID, store.ImagePatch{
		Status:    statusPtr(domain.ImageStatusProcessing),
		StartedAt: &started,
	})
	require.NoError(t, err)

	completed := started.Add(2 * time.Second)
	seconds := 2.0
	updated, err := s.Update(ctx, img.ID, store.ImagePatch{
		Status:         statusPtr(domain.ImageStatusCompleted),
		Result:         &domain.Annotation{Labels: []domain.Label{{Name: "Cat", Confidence: 0.98}}},
		CompletedAt:    &completed,
		ProcessingTime: &seconds,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ImageStatusCompleted, updated.Status)
	require.NotNil(t, updated.Result)
	assert.Equal(t, "Cat", updated.Result.Labels[0].Name)
	require.NotNil(t, updated.ProcessingTime)
	assert.Equal(t, 2.0, *updated.ProcessingTime)
	require.NotNil(t, updated.CompletedAt)
	assert.True(t, updated.CompletedAt.After(*updated.StartedAt))
}

func TestUpdateRejectsIllegalTransition(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	img := newTestImage(t, "user-1")
	require.NoError(t, s.Create(ctx, img))

	for _, status := range []domain.ImageStatus{
		domain.ImageStatusProcessing,
		domain.ImageStatusCompleted,
	} {
		_, err := s.Update(ctx, img.ID, store.ImagePatch{Status: statusPtr(status)})
		require.NoError(t, err)
	}

	// A terminal record must not be revived.
	_, err := s.Update(ctx, img.ID, store.ImagePatch{
		Status: statusPtr(domain.ImageStatusProcessing),
	})
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	got, err := s.GetByID(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ImageStatusCompleted, got.Status)
}

func TestUpdateNotFound(t *testing.T) {
	t.Parallel()
	s := New()

	_, err := s.Update(context.Background(), uuid.New(), store.ImagePatch{
		Status: statusPtr(domain.ImageStatusProcessing),
	})
	assert.ErrorIs(t, err, store.ErrImageNotFound)
}

func TestListByOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Create(ctx, newTestImage(t, "user-1")))
	}
	require.NoError(t, s.Create(ctx, newTestImage(t, "user-2")))

	mine, err := s.ListByOwner(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	theirs, err := s.ListByOwner(ctx, "user-2")
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	nobody, err := s.ListByOwner(ctx, "user-3")
	require.NoError(t, err)
	assert.Empty(t, nobody)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	img := newTestImage(t, "user-1")
	require.NoError(t, s.Create(ctx, img))

	existed, err := s.Delete(ctx, img.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, img.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	_, err = s.GetByID(ctx, img.ID)
	assert.ErrorIs(t, err, store.ErrImageNotFound)
}

func TestCountsByStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	errMsg := "upstream failure"
	seed := []struct {
		status domain.ImageStatus
		n      int
	}{
		{domain.ImageStatusPending, 2},
		{domain.ImageStatusProcessing, 1},
		{domain.ImageStatusCompleted, 3},
		{domain.ImageStatusError, 1},
	}

	for _, grp := range seed {
		for i := 0; i < grp.n; i++ {
			img := newTestImage(t, "user-1")
			require.NoError(t, s.Create(ctx, img))
			if grp.status == domain.ImageStatusPending {
				continue
			}
			if grp.status == domain.ImageStatusCompleted {
				_, err := s.Update(ctx, img.ID, store.ImagePatch{
					Status: statusPtr(domain.ImageStatusProcessing),
				})
				require.NoError(t, err)
			}
			patch := store.ImagePatch{Status: statusPtr(grp.status)}
			if grp.status == domain.ImageStatusError {
				patch.ErrorMessage = &errMsg
			}
			_, err := s.Update(ctx, img.ID, patch)
			require.NoError(t, err)
		}
	}

	counts, err := s.CountsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, counts.Total)
	assert.Equal(t, 3, counts.Completed)
	assert.Equal(t, 1, counts.Processing)
	assert.Equal(t, 1, counts.Errors)
	// Pending records count toward Total only.
	assert.Equal(t, 2, counts.Total-counts.Completed-counts.Processing-counts.Errors)
}

func TestConcurrentCreateAndUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	const n = 100
	ids := make(chan uuid.UUID, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img := newTestImage(t, "user-1")
			if err := s.Create(ctx, img); err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			started := time.Now().UTC()
			if _, err := s.Update(ctx, img.ID, store.ImagePatch{
				Status:    statusPtr(domain.ImageStatusProcessing),
				StartedAt: &started,
			}); err != nil {
				t.Errorf("update to processing failed: %v", err)
				return
			}
			completed := time.Now().UTC()
			seconds := completed.Sub(started).Seconds()
			if _, err := s.Update(ctx, img.ID, store.ImagePatch{
				Status:         statusPtr(domain.ImageStatusCompleted),
				Result:         &domain.Annotation{Labels: []domain.Label{{Name: "Cat", Confidence: 0.9}}},
				CompletedAt:    &completed,
				ProcessingTime: &seconds,
			}); err != nil {
				t.Errorf("update to completed failed: %v", err)
				return
			}
			ids <- img.ID
		}()
	}
	wg.Wait()
	close(ids)

	distinct := make(map[uuid.UUID]bool)
	for id := range ids {
		distinct[id] = true
	}
	require.Len(t, distinct, n)

	// No record may hold a torn status/result combination.
	for id := range distinct {
		img, err := s.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ImageStatusCompleted, img.Status)
		assert.NotNil(t, img.Result)
		assert.Empty(t, img.ErrorMessage)
		assert.NotNil(t, img.ProcessingTime)
	}

	counts, err := s.CountsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, counts.Total)
	assert.Equal(t, n, counts.Completed)
}
