// Package sqlitestore provides a durable ImageStore backed by SQLite.
// It implements the same interface as the in-memory store, so
// the orchestration layer is oblivious to which one it was handed.
// SQLite serializes writers, which gives the per-ID atomicity the store
// contract requires without any extra locking here.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/store"

	// Registers the pure-Go "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL,
	filename        TEXT NOT NULL,
	size            INTEGER NOT NULL,
	mime_type       TEXT NOT NULL,
	blob_location   TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL,
	result          TEXT,
	error_message   TEXT NOT NULL DEFAULT '',
	uploaded_at     TIMESTAMP NOT NULL,
	started_at      TIMESTAMP,
	completed_at    TIMESTAMP,
	processing_time REAL
);
CREATE INDEX IF NOT EXISTS idx_images_owner ON images(owner_id);
CREATE INDEX IF NOT EXISTS idx_images_status ON images(status);
`

// ImageStore is a SQLite-backed implementation of store.ImageStore.
type ImageStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the SQLite database at path and
// returns a ready ImageStore. Use ":memory:" for an ephemeral database.
func Open(path string, logger *slog.Logger) (*ImageStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY under concurrent writers
	// and is required for :memory: databases to see one shared schema.
	db.SetMaxOpenConns(1)

	return New(db, logger)
}

// New wraps an existing database handle and ensures the schema exists.
func New(db *sql.DB, logger *slog.Logger) (*ImageStore, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize image schema: %w", err)
	}

	return &ImageStore{
		db:     db,
		logger: logger.With("component", "sqlite_image_store"),
	}, nil
}

// Close releases the underlying database handle.
func (s *ImageStore) Close() error {
	return s.db.Close()
}

// Create saves a new image record to the store.
func (s *ImageStore) Create(ctx context.Context, image *domain.Image) error {
	if err := image.Validate(); err != nil {
		return err
	}

	resultJSON, err := marshalResult(image.Result)
	if err != nil {
		return store.NewStoreError("image", "create", "failed to encode result", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO images
		 (id, owner_id, filename, size, mime_type, blob_location, status,
		  result, error_message, uploaded_at, started_at, completed_at, processing_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		image.ID.String(), image.OwnerID, image.Filename, image.Size,
		image.MimeType, image.BlobLocation, string(image.Status),
		resultJSON, image.ErrorMessage, image.UploadedAt,
		nullableTime(image.StartedAt), nullableTime(image.CompletedAt),
		nullableFloat(image.ProcessingTime),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: image %s", store.ErrDuplicate, image.ID)
		}
		return store.NewStoreError("image", "create", "insert failed", err)
	}
	return nil
}

// GetByID retrieves an image by its unique ID.
func (s *ImageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Image, error) {
	return getImage(ctx, s.db, id)
}

// ListByOwner retrieves all images belonging to the given owner.
func (s *ImageStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Image, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` FROM images WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, store.NewStoreError("image", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	images := make([]*domain.Image, 0)
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("image", "list", "row iteration failed", err)
	}
	return images, nil
}

// Update applies the patch inside a transaction and returns the updated record.
func (s *ImageStore) Update(ctx context.Context, id uuid.UUID, patch store.ImagePatch) (*domain.Image, error) {
	var updated *domain.Image

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		current, err := getImage(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := patch.CheckTransition(current.Status); err != nil {
			return err
		}

		sets := make([]string, 0, 6)
		args := make([]any, 0, 7)

		if patch.Status != nil {
			sets = append(sets, "status = ?")
			args = append(args, string(*patch.Status))
		}
		if patch.Result != nil {
			resultJSON, err := marshalResult(patch.Result)
			if err != nil {
				return store.NewStoreError("image", "update", "failed to encode result", err)
			}
			sets = append(sets, "result = ?")
			args = append(args, resultJSON)
		}
		if patch.ErrorMessage != nil {
			sets = append(sets, "error_message = ?")
			args = append(args, *patch.ErrorMessage)
		}
		if patch.StartedAt != nil {
			sets = append(sets, "started_at = ?")
			args = append(args, *patch.StartedAt)
		}
		if patch.CompletedAt != nil {
			sets = append(sets, "completed_at = ?")
			args = append(args, *patch.CompletedAt)
		}
		if patch.ProcessingTime != nil {
			sets = append(sets, "processing_time = ?")
			args = append(args, *patch.ProcessingTime)
		}

		if len(sets) > 0 {
			args = append(args, id.String())
			res, err := tx.ExecContext(ctx,
				"UPDATE images SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
			if err != nil {
				return store.NewStoreError("image", "update", "update failed", err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return store.NewStoreError("image", "update", "rows affected unavailable", err)
			}
			if affected == 0 {
				return store.ErrImageNotFound
			}
		}

		img, err := getImage(ctx, tx, id)
		if err != nil {
			return err
		}
		updated = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the record and reports whether it existed.
func (s *ImageStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id.String())
	if err != nil {
		return false, store.NewStoreError("image", "delete", "delete failed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, store.NewStoreError("image", "delete", "rows affected unavailable", err)
	}
	return affected > 0, nil
}

// CountsByStatus scans the live record set and returns aggregate counts.
func (s *ImageStore) CountsByStatus(ctx context.Context) (store.StatusCounts, error) {
	var counts store.StatusCounts

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM images GROUP BY status`)
	if err != nil {
		return counts, store.NewStoreError("image", "counts", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, store.NewStoreError("image", "counts", "scan failed", err)
		}
		counts.Total += n
		switch domain.ImageStatus(status) {
		case domain.ImageStatusCompleted:
			counts.Completed = n
		case domain.ImageStatusProcessing:
			counts.Processing = n
		case domain.ImageStatusError:
			counts.Errors = n
		}
	}
	if err := rows.Err(); err != nil {
		return counts, store.NewStoreError("image", "counts", "row iteration failed", err)
	}
	return counts, nil
}

const selectColumns = `SELECT id, owner_id, filename, size, mime_type, blob_location,
	status, result, error_message, uploaded_at, started_at, completed_at, processing_time`

// getImage reads one record through either a connection or a transaction.
func getImage(ctx context.Context, q store.DBTX, id uuid.UUID) (*domain.Image, error) {
	return scanImage(q.QueryRowContext(ctx,
		selectColumns+` FROM images WHERE id = ?`, id.String()))
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*domain.Image, error) {
	var (
		idText         string
		img            domain.Image
		resultJSON     sql.NullString
		startedAt      sql.NullTime
		completedAt    sql.NullTime
		processingTime sql.NullFloat64
		status         string
	)

	err := row.Scan(&idText, &img.OwnerID, &img.Filename, &img.Size, &img.MimeType,
		&img.BlobLocation, &status, &resultJSON, &img.ErrorMessage,
		&img.UploadedAt, &startedAt, &completedAt, &processingTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrImageNotFound
		}
		return nil, store.NewStoreError("image", "get", "scan failed", err)
	}

	img.ID, err = uuid.Parse(idText)
	if err != nil {
		return nil, store.NewStoreError("image", "get", "malformed id", err)
	}
	img.Status = domain.ImageStatus(status)

	if resultJSON.Valid && resultJSON.String != "" {
		var ann domain.Annotation
		if err := json.Unmarshal([]byte(resultJSON.String), &ann); err != nil {
			return nil, store.NewStoreError("image", "get", "malformed result", err)
		}
		img.Result = &ann
	}
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		img.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		img.CompletedAt = &t
	}
	if processingTime.Valid {
		img.ProcessingTime = &processingTime.Float64
	}

	return &img, nil
}

func marshalResult(ann *domain.Annotation) (sql.NullString, error) {
	if ann == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(ann)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
