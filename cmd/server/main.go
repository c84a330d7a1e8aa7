// Package main implements the entry point for the Optic API server,
// which accepts image uploads and runs recognition on them in the
// background while clients poll for results.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/tessling/optic-api/internal/config"
	"github.com/tessling/optic-api/internal/platform/logger"
)

func main() {
	ctx := context.Background()

	cfg, appLogger, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"storage_driver", cfg.Storage.Driver)

	if cfg.Auth.JWTSecret != "" {
		appLogger.Debug("Auth configuration", "jwt_secret_present", true)
	}
	if cfg.Vision.CredentialsFile != "" {
		appLogger.Debug("Vision configuration", "credentials_file_present", true)
	}

	return cfg, appLogger, nil
}
