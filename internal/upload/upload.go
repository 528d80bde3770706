// Package upload stores product, category and avatar images and returns the
// public URL the draft keeps.
package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted image body.
const MaxImageSize = 10 << 20

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image exceeds size limit")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is one uploaded file, fully buffered so a failed attempt can be
// retried against another store.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is the outcome of a successful upload.
type Result struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Uploader stores images.
type Uploader interface {
	Upload(ctx context.Context, img Image) (Result, error)
}

// Validate checks size and type. An empty ContentType is sniffed from the data.
func (img *Image) Validate() error {
	if len(img.Data) == 0 {
		return ErrEmptyImage
	}
	if len(img.Data) > MaxImageSize {
		return fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(img.Data))
	}
	if img.ContentType == "" || img.ContentType == "application/octet-stream" {
		img.ContentType = http.DetectContentType(img.Data)
	}
	ct, _, _ := strings.Cut(img.ContentType, ";")
	img.ContentType = strings.TrimSpace(ct)
	if _, ok := extensions[img.ContentType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, img.ContentType)
	}
	return nil
}

// objectName returns a collision-free name keeping a sensible extension.
func objectName(img Image) string {
	ext := strings.ToLower(path.Ext(img.Name))
	if ext == "" || ext == ".jpeg" {
		ext = extensions[img.ContentType]
	}
	return uuid.NewString() + ext
}

func joinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/")
}
