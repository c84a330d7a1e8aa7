package localblob

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	id := uuid.New()
	payload := []byte("fake image bytes")

	location, err := s.Put(ctx, "user-1", id, payload)
	require.NoError(t, err)
	assert.Contains(t, location, id.String())
	assert.Contains(t, location, "user-1")

	got, err := s.Get(ctx, location)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	assert.True(t, s.Delete(ctx, location))
	_, err = s.Get(ctx, location)
	assert.Error(t, err)

	// Deleting again is a no-op failure, not a panic.
	assert.False(t, s.Delete(ctx, location))
}

func TestOwnerScopedDirectories(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root, nil)
	require.NoError(t, err)

	loc1, err := s.Put(ctx, "alice", uuid.New(), []byte("one"))
	require.NoError(t, err)
	loc2, err := s.Put(ctx, "bob", uuid.New(), []byte("two"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "alice"), filepath.Dir(loc1))
	assert.Equal(t, filepath.Join(root, "bob"), filepath.Dir(loc2))
}

func TestOwnerPathSanitized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root, nil)
	require.NoError(t, err)

	location, err := s.Put(ctx, "../../etc", uuid.New(), []byte("payload"))
	require.NoError(t, err)

	rel, err := filepath.Rel(root, location)
	require.NoError(t, err)
	assert.NotContains(t, rel, "..")
}

func TestGetRejectsLocationsOutsideRoot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "stray.img")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	_, err = s.Get(ctx, outside)
	assert.Error(t, err)
	assert.False(t, s.Delete(ctx, outside))
}

func TestSweepOlderThan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	oldLoc, err := s.Put(ctx, "user-1", uuid.New(), []byte("old"))
	require.NoError(t, err)
	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldLoc, stale, stale))

	freshLoc, err := s.Put(ctx, "user-1", uuid.New(), []byte("fresh"))
	require.NoError(t, err)

	removed, err := s.SweepOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(ctx, oldLoc)
	assert.Error(t, err)
	_, err = s.Get(ctx, freshLoc)
	assert.NoError(t, err)
}
