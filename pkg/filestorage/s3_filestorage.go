package filestorage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"crm-system/pkg/config"
)

type S3FileStorage struct {
	raw        *minio.Client
	bucket     string
	presignTTL time.Duration
}

func NewS3FileStorage(ctx context.Context, cfg config.S3Config) (*S3FileStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &S3FileStorage{raw: client, bucket: cfg.Bucket, presignTTL: cfg.PresignTTL}, nil
}

func (s *S3FileStorage) Save(ctx context.Context, file io.Reader, size int64, originalFileName, contentType, prefix string) (string, error) {
	key := objectKey(time.Now(), originalFileName, prefix)
	_, err := s.raw.PutObject(ctx, s.bucket, key, file, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %q failed: %w", key, err)
	}
	return key, nil
}

func (s *S3FileStorage) Delete(ctx context.Context, key string) error {
	if err := s.raw.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q failed: %w", key, err)
	}
	return nil
}

func (s *S3FileStorage) URL(ctx context.Context, key string) (string, error) {
	u, err := s.raw.PresignedGetObject(ctx, s.bucket, key, s.presignTTL, nil)
	if err != nil {
		return "", fmt.Errorf("presign get object %q failed: %w", key, err)
	}
	return u.String(), nil
}
