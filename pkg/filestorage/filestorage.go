package filestorage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crm-system/pkg/config"
)

// FileStorageInterface stores attachment blobs under opaque keys.
type FileStorageInterface interface {
	Save(ctx context.Context, file io.Reader, size int64, originalFileName, contentType, prefix string) (key string, err error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// New picks the backend named by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (FileStorageInterface, error) {
	switch cfg.Driver {
	case "", "local":
		logger.Info("file storage: local", zap.String("dir", cfg.UploadDir))
		return NewLocalFileStorage(cfg.UploadDir)
	case "s3", "minio":
		logger.Info("file storage: s3", zap.String("endpoint", cfg.S3.Endpoint), zap.String("bucket", cfg.S3.Bucket))
		return NewS3FileStorage(ctx, cfg.S3)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// objectKey builds "<prefix>/YYYY/MM/DD/<date>-<uuid><ext>".
func objectKey(now time.Time, originalFileName, prefix string) string {
	ext := filepath.Ext(originalFileName)
	name := fmt.Sprintf("%s-%s%s", now.Format("2006-01-02"), uuid.NewString(), ext)
	return path.Join(prefix, now.Format("2006/01/02"), name)
}
