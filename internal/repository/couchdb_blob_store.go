package repository

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/go-kivik/kivik/v4"
	_ "github.com/go-kivik/kivik/v4/couchdb"
	"github.com/sirupsen/logrus"

	"boulder-editor/internal/config"
)

type CouchDBBlobStore struct {
	client *kivik.Client
	db     *kivik.DB
}

type blobDoc struct {
	ID        string `json:"_id"`
	Rev       string `json:"_rev,omitempty"`
	DocType   string `json:"doc_type"`
	Data      string `json:"data"`
	UpdatedAt string `json:"updated_at"`
}

// NewCouchDBBlobStore connects to CouchDB and creates the database when it
// does not exist yet.
func NewCouchDBBlobStore(ctx context.Context, cfg config.DatabaseConfig) (*CouchDBBlobStore, error) {
	couchURL := &url.URL{
		Scheme: "http",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
	}

	client, err := kivik.New("couch", couchURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
	}

	exists, err := client.DBExists(ctx, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %w", err)
	}
	if !exists {
		if err := client.CreateDB(ctx, cfg.Name); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
		logrus.WithField("database", cfg.Name).Info("Created CouchDB database")
	}

	return newCouchDBBlobStore(client, cfg.Name), nil
}

func newCouchDBBlobStore(client *kivik.Client, dbName string) *CouchDBBlobStore {
	return &CouchDBBlobStore{
		client: client,
		db:     client.DB(dbName),
	}
}

func (s *CouchDBBlobStore) Load(ctx context.Context, key string) ([]byte, error) {
	doc, err := s.get(ctx, key)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Error("Failed to load blob")
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return []byte(doc.Data), nil
}

// Save overwrites the blob, retrying once when another writer bumped the
// revision in between.
func (s *CouchDBBlobStore) Save(ctx context.Context, key string, data []byte) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		var current *blobDoc
		current, err = s.get(ctx, key)
		if err != nil {
			break
		}
		doc := blobDoc{
			ID:        key,
			DocType:   "blob",
			Data:      string(data),
			UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		}
		if current != nil {
			doc.Rev = current.Rev
		}
		_, err = s.db.Put(ctx, key, doc)
		if err == nil {
			return nil
		}
		if kivik.HTTPStatus(err) != http.StatusConflict {
			break
		}
	}
	logrus.WithFields(logrus.Fields{
		"key":         key,
		"data_length": len(data),
	}).WithError(err).Error("Failed to save blob")
	return fmt.Errorf("failed to save blob: %w", err)
}

func (s *CouchDBBlobStore) get(ctx context.Context, key string) (*blobDoc, error) {
	var doc blobDoc
	if err := s.db.Get(ctx, key).ScanDoc(&doc); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return &doc, nil
}

func (s *CouchDBBlobStore) Close() error {
	return s.client.Close()
}
