package upload

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// PutObjectAPI is the part of the S3 client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Options configures an S3 uploader.
type S3Options struct {
	Bucket string
	Region string
	// Prefix is prepended to every object key, e.g. "images/".
	Prefix string
	// PublicBaseURL is where objects are served from. Defaults to the
	// virtual-hosted bucket URL.
	PublicBaseURL string
}

type s3Uploader struct {
	client PutObjectAPI
	opts   S3Options
	logger zerolog.Logger
}

// NewS3Uploader creates an uploader using the default AWS credential chain.
func NewS3Uploader(ctx context.Context, opts S3Options, logger zerolog.Logger) (Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.Region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(cfg), opts, logger), nil
}

// NewS3UploaderWithClient creates an uploader over an existing client.
func NewS3UploaderWithClient(client PutObjectAPI, opts S3Options, logger zerolog.Logger) Uploader {
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opts.Bucket, opts.Region)
	}
	logger = logger.With().Str("component", "s3-uploader").Logger()
	logger.Info().
		Str("bucket", opts.Bucket).
		Str("region", opts.Region).
		Str("prefix", opts.Prefix).
		Msg("S3 uploader initialised")

	return &s3Uploader{client: client, opts: opts, logger: logger}
}

func (u *s3Uploader) Upload(ctx context.Context, img Image) (Result, error) {
	if err := img.Validate(); err != nil {
		return Result{}, err
	}

	key := u.opts.Prefix + objectName(img)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(img.ContentType),
		ContentLength: aws.Int64(int64(len(img.Data))),
	})
	if err != nil {
		u.logger.Error().
			Err(err).
			Str("bucket", u.opts.Bucket).
			Str("key", key).
			Msg("failed to put object to S3")
		return Result{}, fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", u.opts.Bucket, key, err)
	}

	u.logger.Info().
		Str("key", key).
		Int("bytes", len(img.Data)).
		Msg("image uploaded to S3")

	return Result{URL: joinURL(u.opts.PublicBaseURL, key), Key: key}, nil
}
