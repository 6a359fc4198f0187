package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type SQLiteBlobStore struct {
	db *sql.DB
}

func NewSQLiteBlobStore(dataSourceName string) (*SQLiteBlobStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps :memory: databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	stmt := `
	CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	if _, err := db.Exec(stmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("create blobs table: %w", err)
	}
	return &SQLiteBlobStore{db: db}, nil
}

func (s *SQLiteBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	log := logrus.WithField("key", key)
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("Blob not found")
			return nil, nil
		}
		log.WithError(err).Error("Failed to load blob")
		return nil, fmt.Errorf("load blob %s: %w", key, err)
	}
	log.WithField("data_length", len(data)).Debug("Blob loaded")
	return data, nil
}

func (s *SQLiteBlobStore) Save(ctx context.Context, key string, data []byte) error {
	log := logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(data),
	})
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC())
	if err != nil {
		log.WithError(err).Error("Failed to save blob")
		return fmt.Errorf("save blob %s: %w", key, err)
	}
	log.Debug("Blob saved")
	return nil
}

func (s *SQLiteBlobStore) Close() error {
	return s.db.Close()
}
