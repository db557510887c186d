package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapu/pec-ai-go/internal/config"
	"go.uber.org/zap"
)

// ObjectStore is a bucket/key blob store.
type ObjectStore interface {
	EnsureBucket(ctx context.Context, bucket string) error
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Remove(ctx context.Context, bucket, key string) error
}

// NewObjectStore builds the backend selected by cfg.Driver.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (ObjectStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "minio", "":
		return NewMinioStore(cfg, logger)
	case "s3":
		return NewS3Store(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// DefaultPublicURL derives the public base URL from the endpoint when none is configured.
func DefaultPublicURL(cfg config.StorageConfig) string {
	if public := strings.TrimSpace(cfg.PublicURL); public != "" {
		return strings.TrimSuffix(public, "/")
	}
	endpoint := strings.TrimSuffix(strings.TrimSpace(cfg.Endpoint), "/")
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, endpoint)
}
