package upload

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

type fallbackUploader struct {
	primary   Uploader
	secondary Uploader
	logger    zerolog.Logger
}

// NewFallbackUploader tries primary first and falls back to secondary on any
// failure other than an invalid image. A nil primary uses secondary only.
func NewFallbackUploader(primary, secondary Uploader, logger zerolog.Logger) Uploader {
	return &fallbackUploader{
		primary:   primary,
		secondary: secondary,
		logger:    logger.With().Str("component", "fallback-uploader").Logger(),
	}
}

func (u *fallbackUploader) Upload(ctx context.Context, img Image) (Result, error) {
	if u.primary == nil {
		u.logger.Debug().Msg("no primary uploader configured, using fallback")
		return u.secondary.Upload(ctx, img)
	}

	res, err := u.primary.Upload(ctx, img)
	if err == nil {
		return res, nil
	}
	if isInvalidImage(err) || ctx.Err() != nil {
		return Result{}, err
	}

	u.logger.Warn().
		Err(err).
		Str("name", img.Name).
		Msg("primary upload failed, falling back")

	return u.secondary.Upload(ctx, img)
}

func isInvalidImage(err error) bool {
	return errors.Is(err, ErrEmptyImage) || errors.Is(err, ErrImageTooLarge) || errors.Is(err, ErrUnsupportedImage)
}
