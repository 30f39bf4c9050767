// Package media validates admin image uploads and stores them in an
// S3-compatible bucket.
package media

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	nanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/logger"
)

const (
	DefaultMaxBytes = 5 * 1024 * 1024

	msgNotImage     = "Please select an image file"
	msgTooLarge     = "Image must be less than 5MB"
	msgUploadFailed = "Failed to upload image"
	keyPrefix       = "blog/"
	suffixAlphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength    = 10
)

var now = time.Now

// ObjectStore is the object storage the uploader writes to.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	PublicURL(key string) string
}

type Uploader struct {
	store    ObjectStore
	maxBytes int64
	log      *zap.Logger
}

// NewUploader returns an uploader accepting images up to maxBytes. A
// non-positive maxBytes uses DefaultMaxBytes.
func NewUploader(store ObjectStore, maxBytes int64) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{store: store, maxBytes: maxBytes, log: logger.WithModule("media")}
}

// MaxBytes is the largest accepted upload.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// ValidateImage sniffs data and rejects anything that is not an image or is
// larger than maxBytes.
func ValidateImage(data []byte, maxBytes int64) (*mimetype.MIME, error) {
	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, apperrors.Upload(msgNotImage, http.StatusUnsupportedMediaType)
	}
	if int64(len(data)) > maxBytes {
		return nil, apperrors.Upload(msgTooLarge, http.StatusRequestEntityTooLarge)
	}
	return detected, nil
}

// UploadImage validates and stores an image, returning its public URL.
func (u *Uploader) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	detected, err := ValidateImage(data, u.maxBytes)
	if err != nil {
		return "", err
	}
	key, err := objectKey(filename, detected)
	if err != nil {
		return "", apperrors.Internal(err, msgUploadFailed)
	}
	if err := u.store.PutObject(ctx, key, data, detected.String()); err != nil {
		u.log.Error("image upload failed", zap.String("key", key), zap.Error(err))
		return "", &apperrors.AppError{
			Kind:       apperrors.KindUpload,
			Message:    msgUploadFailed,
			StatusCode: http.StatusBadGateway,
			Internal:   err,
		}
	}
	u.log.Info("image uploaded", zap.String("key", key), zap.Int("bytes", len(data)))
	return u.store.PublicURL(key), nil
}

// objectKey builds blog/<unixmillis>-<random>.<ext>. The client's extension is
// kept only when it names the sniffed type; otherwise the sniffed type's
// canonical extension is used.
func objectKey(filename string, detected *mimetype.MIME) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if t := mime.TypeByExtension(ext); ext == "" || t == "" || !detected.Is(t) {
		ext = detected.Extension()
	}
	suffix, err := nanoid.Generate(suffixAlphabet, suffixLength)
	if err != nil {
		return "", fmt.Errorf("generating object name: %w", err)
	}
	return fmt.Sprintf("%s%d-%s%s", keyPrefix, now().UnixMilli(), suffix, ext), nil
}
