package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kart-admin/internal/config"
	"kart-admin/internal/database"
	"kart-admin/internal/repository"
	"kart-admin/internal/resource"
	"kart-admin/internal/router"
	"kart-admin/internal/service"
	"kart-admin/internal/upload"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting kart-admin API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store := repository.NewEntityRepository(pool, logger)

	uploader, err := newUploader(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize image uploads: %w", err)
	}

	transitions, err := cfg.Policies.Transitions()
	if err != nil {
		return fmt.Errorf("invalid order transitions: %w", err)
	}
	opts := resource.Options{
		OrderTransitions:     transitions,
		EnforceOrderTotals:   cfg.Policies.EnforceOrderTotals,
		RejectCategoryCycles: cfg.Policies.RejectCategoryCycles,
	}

	pages := service.NewPages(store, uploader, opts, logger)

	// Initialize router
	mux := router.New(pages, router.Options{
		APIKey:      cfg.Auth.APIKey,
		CORSOrigins: cfg.Server.CORSOrigins,
		UploadDir:   cfg.Uploads.Dir,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newUploader stores images on S3 when enabled, falling back to the local
// upload directory when S3 cannot be reached.
func newUploader(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (upload.Uploader, error) {
	local, err := upload.NewLocalUploader(cfg.Uploads.Dir, cfg.Uploads.BaseURL, logger)
	if err != nil {
		return nil, err
	}

	if !cfg.S3.Enabled {
		logger.Info().Str("dir", cfg.Uploads.Dir).Msg("using local file system for images (S3 disabled)")
		return local, nil
	}

	s3Uploader, err := upload.NewS3Uploader(ctx, upload.S3Options{
		Bucket:        cfg.S3.Bucket,
		Region:        cfg.S3.Region,
		Prefix:        cfg.S3.Prefix,
		PublicBaseURL: cfg.S3.PublicBaseURL,
	}, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 uploader, falling back to local file system only")
		return local, nil
	}
	return upload.NewFallbackUploader(s3Uploader, local, logger), nil
}
