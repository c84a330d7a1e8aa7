package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tessling/optic-api/internal/config"
	"github.com/tessling/optic-api/internal/domain"
	"github.com/tessling/optic-api/internal/platform/localblob"
	"github.com/tessling/optic-api/internal/platform/vision"
	"github.com/tessling/optic-api/internal/service"
	"github.com/tessling/optic-api/internal/store"
	"github.com/tessling/optic-api/internal/store/memstore"
	"github.com/tessling/optic-api/internal/store/sqlitestore"
	"github.com/tessling/optic-api/internal/task"
)

// drainTimeout bounds how long shutdown waits for in-flight recognition
// tasks to finish before abandoning them.
const drainTimeout = 30 * time.Second

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Stores (using interfaces for proper abstraction)
	imageStore store.ImageStore
	blobStore  *localblob.Store

	// Recognition backend
	annotator task.Annotator

	// Task handling
	taskRunner *task.Runner

	// Service interfaces
	imageService service.ImageService

	// closers holds cleanup functions in shutdown order
	closers []func() error
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts configuration and a logger that must be
// established before application initialization.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error

	app.blobStore, err = localblob.New(cfg.Storage.UploadDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}

	if err := app.setupImageStore(); err != nil {
		return nil, err
	}

	if err := app.setupAnnotator(ctx); err != nil {
		return nil, err
	}

	app.taskRunner = task.NewRunner(logger)

	taskFactory := task.NewRecognitionTaskFactory(app.imageStore, app.annotator, logger)

	app.imageService, err = service.NewImageService(
		app.imageStore,
		app.blobStore,
		app.taskRunner,
		taskFactory,
		uploadPolicy(cfg.Upload),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create image service: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupAnnotator connects the Google Vision backend, or installs the
// disabled stand-in when vision is turned off in config.
func (app *application) setupAnnotator(ctx context.Context) error {
	if !app.config.Vision.Enabled {
		app.annotator = disabledAnnotator{}
		app.logger.Warn("Recognition backend disabled; submitted jobs will fail")
		return nil
	}

	annotator, err := vision.New(
		ctx,
		app.logger.With("component", "vision_annotator"),
		app.config.Vision,
		app.blobStore,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize recognition backend: %w", err)
	}
	app.annotator = annotator
	app.closers = append(app.closers, annotator.Close)
	app.logger.Info("Recognition backend initialized")
	return nil
}

// disabledAnnotator fails every annotation request. Jobs still walk the
// full lifecycle and surface the message through their error state.
type disabledAnnotator struct{}

func (disabledAnnotator) Annotate(context.Context, string) (*domain.Annotation, error) {
	return nil, errors.New("recognition backend is disabled")
}

// setupImageStore selects the record store named by the storage driver.
func (app *application) setupImageStore() error {
	switch app.config.Storage.Driver {
	case "sqlite":
		sqlStore, err := sqlitestore.Open(app.config.Storage.SQLitePath, app.logger)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		app.imageStore = sqlStore
		app.closers = append(app.closers, sqlStore.Close)
		app.logger.Info("Using sqlite record store", "path", app.config.Storage.SQLitePath)
	default:
		app.imageStore = memstore.New()
		app.logger.Info("Using in-memory record store")
	}
	return nil
}

// uploadPolicy converts upload configuration into the domain policy.
func uploadPolicy(cfg config.UploadConfig) domain.UploadPolicy {
	return domain.UploadPolicy{
		MinBytes:     cfg.MinBytes,
		MaxBytes:     cfg.MaxBytes,
		AllowedTypes: cfg.AllowedTypes,
	}
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go app.runBlobSweep(sweepCtx)

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// runBlobSweep periodically reclaims stored image bytes that have outlived
// the configured retention window. Disabled when the window is zero.
func (app *application) runBlobSweep(ctx context.Context) {
	if app.config.Storage.SweepAfterHours <= 0 {
		return
	}
	age := time.Duration(app.config.Storage.SweepAfterHours) * time.Hour

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := app.blobStore.SweepOlderThan(ctx, age)
			if err != nil {
				app.logger.Warn("Blob sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				app.logger.Info("Swept stale blobs", "removed", removed)
			}
		}
	}
}

// cleanup handles graceful shutdown of application resources. In-flight
// recognition tasks get a bounded window to finish before the process
// lets go of them.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := app.taskRunner.Stop(drainCtx); err != nil {
			app.logger.Warn("Task runner did not drain in time", "error", err)
		}
	}

	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("Error during shutdown cleanup", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
