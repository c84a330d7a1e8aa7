// Package localblob stores raw image bytes on the local filesystem.
// Blobs live under an owner-scoped directory and are addressed by the
// absolute file path the Put call returns; callers treat that location
// as an opaque handle. Swapping in an object store means implementing
// the same three operations behind the service's BlobStore interface.
package localblob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is a filesystem-backed blob store rooted at a single directory.
type Store struct {
	root   string
	logger *slog.Logger
}

// New creates the root directory if needed and returns a ready Store.
func New(root string, logger *slog.Logger) (*Store, error) {
	if root == "" {
		return nil, errors.New("blob root directory cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve blob root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root %s: %w", abs, err)
	}

	return &Store{
		root:   abs,
		logger: logger.With("component", "localblob"),
	}, nil
}

// Put writes the image bytes under the owner's directory and returns the
// location handle. The filename embeds the image ID and a timestamp, so a
// re-upload of the same ID can never silently overwrite an earlier blob.
func (s *Store) Put(ctx context.Context, ownerID string, imageID uuid.UUID, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ownerDir := filepath.Join(s.root, sanitizeOwner(ownerID))
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create owner directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%d.img", imageID, time.Now().UnixMilli())
	location := filepath.Join(ownerDir, filename)

	if err := os.WriteFile(location, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write blob %s: %w", location, err)
	}

	s.logger.Debug("blob stored", "location", location, "bytes", len(data))
	return location, nil
}

// Get reads back the blob at the given location.
func (s *Store) Get(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ensureInRoot(location); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", location, err)
	}
	return data, nil
}

// Delete removes the blob and reports success. Failures are logged, not
// returned: record deletion must not be blocked by a missing file.
func (s *Store) Delete(ctx context.Context, location string) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	if err := s.ensureInRoot(location); err != nil {
		s.logger.Warn("refusing to delete blob outside root", "location", location)
		return false
	}

	if err := os.Remove(location); err != nil {
		s.logger.Warn("failed to delete blob", "location", location, "error", err)
		return false
	}
	s.logger.Debug("blob deleted", "location", location)
	return true
}

// SweepOlderThan removes blobs whose modification time is older than the
// given age and returns how many were removed. Intended for a maintenance
// cron, not the request path.
func (s *Store) SweepOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	removed := 0

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				s.logger.Warn("sweep failed to remove blob", "location", path, "error", err)
				return nil
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("blob sweep failed: %w", err)
	}

	s.logger.Info("blob sweep finished", "removed", removed)
	return removed, nil
}

// ensureInRoot rejects locations that escape the store's root directory.
func (s *Store) ensureInRoot(location string) error {
	rel, err := filepath.Rel(s.root, location)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("location %s is outside the blob root", location)
	}
	return nil
}

// sanitizeOwner keeps owner-derived path segments to a safe charset.
func sanitizeOwner(ownerID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, ownerID)
}
