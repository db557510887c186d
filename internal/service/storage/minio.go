package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/kapu/pec-ai-go/internal/config"
	"github.com/kapu/pec-ai-go/internal/constants"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// MinioStore keeps card images in a MinIO (or S3-compatible) server.
type MinioStore struct {
	client *minio.Client
	logger *zap.Logger
}

func NewMinioStore(cfg config.StorageConfig, logger *zap.Logger) (*MinioStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	logger.Info("MinIO storage configured", zap.String("endpoint", endpoint), zap.Bool("ssl", cfg.UseSSL))
	return &MinioStore{client: client, logger: logger}, nil
}

func (s *MinioStore) EnsureBucket(ctx context.Context, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.StorageConfig.RemoveTimeout)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	s.logger.Info("Bucket created", zap.String("bucket", bucket))
	return nil
}

func (s *MinioStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.StorageConfig.UploadTimeout)
	defer cancel()

	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: constants.StorageConfig.CacheControl,
	})
	return err
}

func (s *MinioStore) Remove(ctx context.Context, bucket, key string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.StorageConfig.RemoveTimeout)
	defer cancel()

	return s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}
