package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kapu/pec-ai-go/internal/domain"
	"github.com/kapu/pec-ai-go/pkg/errors"
	"go.uber.org/zap"
)

// Uploader maps images to principal-scoped object keys and public URLs.
// Keys look like "<userID>/<unix-millis>-<uuid><ext>".
type Uploader struct {
	store     ObjectStore
	buckets   map[domain.ImageDestination]string
	publicURL string
	maxBytes  int
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

type UploaderConfig struct {
	PublicURL    string
	CardBucket   string
	AvatarBucket string
	MaxBytes     int
}

func NewUploader(store ObjectStore, cfg UploaderConfig, logger *zap.Logger) *Uploader {
	buckets := map[domain.ImageDestination]string{
		domain.DestinationCards: cfg.CardBucket,
	}
	if cfg.AvatarBucket != "" {
		buckets[domain.DestinationAvatars] = cfg.AvatarBucket
	}
	return &Uploader{
		store:     store,
		buckets:   buckets,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		maxBytes:  cfg.MaxBytes,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// EnsureBuckets creates missing buckets at startup.
func (u *Uploader) EnsureBuckets(ctx context.Context) error {
	for dest, bucket := range u.buckets {
		if err := u.store.EnsureBucket(ctx, bucket); err != nil {
			return errors.NewStorageError("bucket not available", "ensure_bucket", string(dest), err)
		}
	}
	return nil
}

// Upload stores img for userID and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, userID string, img domain.EncodedImage, dest domain.ImageDestination) (string, error) {
	bucket, ok := u.buckets[dest]
	if !ok {
		return "", errors.NewValidationError("unknown upload destination", "destination", string(dest))
	}
	if err := img.Validate(u.maxBytes); err != nil {
		return "", err
	}

	key := path.Join(userID, fmt.Sprintf("%d-%s%s", u.now().UnixMilli(), u.newID(), img.Extension()))
	if err := u.store.Put(ctx, bucket, key, img.Data, img.MIMEType); err != nil {
		u.logger.Error("Image upload failed", zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
		return "", errors.NewStorageError("failed to upload image", "put", key, err)
	}

	u.logger.Debug("Image uploaded",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int("bytes", len(img.Data)),
	)
	return u.buildPublicURL(bucket, key), nil
}

// Remove deletes the object behind a URL produced by Upload. URLs that do not
// resolve to a key are ignored.
func (u *Uploader) Remove(ctx context.Context, imageURL string, dest domain.ImageDestination) error {
	bucket, ok := u.buckets[dest]
	if !ok {
		return errors.NewValidationError("unknown upload destination", "destination", string(dest))
	}
	key, ok := ObjectKeyFromURL(imageURL)
	if !ok {
		u.logger.Warn("Image URL has no object key", zap.String("url", imageURL))
		return nil
	}

	if err := u.store.Remove(ctx, bucket, key); err != nil {
		return errors.NewStorageError("failed to remove image", "remove", key, err)
	}
	return nil
}

func (u *Uploader) buildPublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", u.publicURL, bucket, strings.TrimPrefix(key, "/"))
}

// ObjectKeyFromURL returns "<userID>/<filename>", the last two path segments.
func ObjectKeyFromURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	p := trimmed
	if parsed, err := url.Parse(trimmed); err == nil && parsed.Path != "" {
		p = parsed.Path
	}

	segments := strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
	if len(segments) < 2 {
		return "", false
	}
	return path.Join(segments[len(segments)-2:]...), true
}
