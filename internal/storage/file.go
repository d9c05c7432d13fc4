package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore writes blobs under a local directory served at /uploads/.
type FileStore struct {
	dir     string
	baseURL string
}

func NewFileStore(dir, publicBaseURL string) *FileStore {
	return &FileStore{
		dir:     dir,
		baseURL: strings.TrimRight(publicBaseURL, "/") + "/uploads",
	}
}

func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	clean := filepath.Clean("/" + path)
	target := filepath.Join(s.dir, filepath.FromSlash(clean))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return s.baseURL + filepath.ToSlash(clean), nil
}
