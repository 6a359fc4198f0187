package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"boulder-editor/internal/config"
)

var ErrStoreClosed = errors.New("blob store is closed")

// BlobStore keeps opaque values under string keys. The boulder collection
// is persisted as one blob.
type BlobStore interface {
	// Load returns nil, nil when key has never been written.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// NewBlobStore opens the backend selected by cfg.Storage.Type.
func NewBlobStore(cfg *config.Config) (BlobStore, error) {
	fields := logrus.Fields{
		"storageType": cfg.Storage.Type,
		"key":         cfg.Storage.Key,
	}

	var (
		store BlobStore
		err   error
	)
	switch cfg.Storage.Type {
	case config.StorageFilesystem:
		fields["basePath"] = cfg.Storage.LocalPath
		store, err = NewFileBlobStore(cfg.Storage.LocalPath)
	case config.StorageSQLite:
		fields["dataSourceName"] = cfg.Storage.SQLiteDSN
		store, err = NewSQLiteBlobStore(cfg.Storage.SQLiteDSN)
	case config.StorageBadger:
		fields["path"] = cfg.Storage.BadgerPath
		store, err = NewBadgerBlobStore(BadgerConfig{Path: cfg.Storage.BadgerPath, SyncWrites: true})
	case config.StorageCouchDB:
		fields["couchHost"] = cfg.Database.Host
		fields["couchDB"] = cfg.Database.Name
		store, err = NewCouchDBBlobStore(context.Background(), cfg.Database)
	case config.StorageMemory:
		store = NewMemoryBlobStore()
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("Failed to open storage")
		return nil, err
	}

	logrus.WithFields(fields).Info("Use storage")
	return store, nil
}
