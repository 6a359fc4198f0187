package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/sirupsen/logrus"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileBlobStore writes each key to <basePath>/<key>.json. Writes go through a
// temp file and a rename so a crash never leaves a torn blob behind.
type FileBlobStore struct {
	basePath string
}

func NewFileBlobStore(basePath string) (*FileBlobStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", basePath, err)
	}
	return &FileBlobStore{basePath: basePath}, nil
}

func (s *FileBlobStore) path(key string) string {
	return filepath.Join(s.basePath, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

func (s *FileBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		logrus.WithField("path", path).WithError(err).Error("Failed to read blob")
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	logrus.WithFields(logrus.Fields{
		"path":        path,
		"data_length": len(data),
	}).Debug("Blob loaded")
	return data, nil
}

func (s *FileBlobStore) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.path(key)
	log := logrus.WithFields(logrus.Fields{
		"path":        path,
		"data_length": len(data),
	})
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		log.WithError(err).Error("Failed to write blob")
		return err
	}
	log.Debug("Blob saved")
	return nil
}

func (s *FileBlobStore) Close() error { return nil }

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	_ = tmp.Chmod(perm)
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	committed = true
	return nil
}
