package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config holds the MinIO connection parameters.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Storage stores and retrieves document PDFs in a single MinIO bucket.
type Storage struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// New initializes the MinIO client and makes sure the bucket exists.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client init error: %w", err)
	}

	s := &Storage{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}

	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureBucket ensures the bucket exists, creates it if not.
func (s *Storage) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("error creating bucket: %w", err)
		}
		s.logger.Info("created bucket", zap.String("bucket", s.bucket))
	}

	return nil
}

// Upload stores the object and returns its object name.
func (s *Storage) Upload(ctx context.Context, r io.Reader, size int64, objectName, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("error uploading object %s: %w", objectName, err)
	}
	return objectName, nil
}

// Download reads the whole object into memory.
func (s *Storage) Download(ctx context.Context, objectName string) ([]byte, error) {
	object, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("error getting object %s: %w", objectName, err)
	}
	defer object.Close()

	content, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("error reading object %s: %w", objectName, err)
	}
	return content, nil
}

// Delete removes the object.
func (s *Storage) Delete(ctx context.Context, objectName string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("error deleting object %s: %w", objectName, err)
	}
	return nil
}
