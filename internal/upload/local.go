package upload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

type localUploader struct {
	dir     string
	baseURL string
	logger  zerolog.Logger
}

// NewLocalUploader stores images under dir and serves them from baseURL.
func NewLocalUploader(dir, baseURL string, logger zerolog.Logger) (Uploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &localUploader{
		dir:     dir,
		baseURL: baseURL,
		logger:  logger.With().Str("component", "local-uploader").Logger(),
	}, nil
}

func (u *localUploader) Upload(ctx context.Context, img Image) (Result, error) {
	if err := img.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	name := objectName(img)
	target := filepath.Join(u.dir, name)
	if err := os.WriteFile(target, img.Data, 0o644); err != nil {
		u.logger.Error().Err(err).Str("file", target).Msg("failed to write image")
		return Result{}, fmt.Errorf("failed to write image %s: %w", target, err)
	}

	u.logger.Info().
		Str("file", target).
		Int("bytes", len(img.Data)).
		Msg("image stored locally")

	return Result{URL: joinURL(u.baseURL, name), Key: name}, nil
}
