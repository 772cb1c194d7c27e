// pkg/filestorage/local_filestorage.go

package filestorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const localURLPrefix = "/uploads/"

type LocalFileStorage struct {
	basePath string
}

func NewLocalFileStorage(basePath string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalFileStorage{basePath: basePath}, nil
}

func (s *LocalFileStorage) Save(_ context.Context, file io.Reader, _ int64, originalFileName, _ string, prefix string) (string, error) {
	key := objectKey(time.Now(), originalFileName, prefix)
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", err
	}

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		return "", err
	}
	return key, nil
}

// Delete treats a missing file as already deleted.
func (s *LocalFileStorage) Delete(_ context.Context, key string) error {
	relativePath := strings.TrimPrefix(key, localURLPrefix)
	if strings.Contains(relativePath, "..") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(relativePath)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalFileStorage) URL(_ context.Context, key string) (string, error) {
	return localURLPrefix + strings.TrimPrefix(key, "/"), nil
}
