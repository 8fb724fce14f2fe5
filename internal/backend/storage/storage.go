// Package storage keeps durable photo bytes addressed by opaque keys.
// Stored blobs are referenced from photos as blob://<key>.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const URLScheme = "blob://"

var ErrNotFound = errors.New("blob not found")

type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}

// Config selects and configures a blob store.
type Config struct {
	Type             string `yaml:"type"`
	Bucket           string `yaml:"bucket"`
	Region           string `yaml:"region"`
	Endpoint         string `yaml:"endpoint"`
	AccessKey        string `yaml:"accessKey"`
	AccessSecret     string `yaml:"accessSecret"`
	S3ForcePathStyle bool   `yaml:"s3ForcePathStyle"`
	DisableSSL       bool   `yaml:"disableSSL"`
}

// NewBlobStore creates a store by type. The sqlite store shares db.
func NewBlobStore(cfg Config, db *sql.DB) (BlobStore, error) {
	switch cfg.Type {
	case "", "sqlite":
		return NewSQLiteStore(db)
	case "s3":
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// URL returns the blob:// URL for key.
func URL(key string) string {
	return URLScheme + key
}

// KeyFromURL extracts the key of a blob:// URL.
func KeyFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, URLScheme) {
		return "", false
	}
	key := strings.TrimPrefix(url, URLScheme)
	return key, key != ""
}

func newKey() string {
	return uuid.NewString()
}
