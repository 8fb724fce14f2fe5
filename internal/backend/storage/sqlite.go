package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLiteStore keeps blobs in a table next to the photo registry.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite blob store requires a database")
	}
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		content_type TEXT NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	key := newKey()
	_, err := s.db.ExecContext(ctx, "INSERT INTO blobs (key, content_type, data) VALUES (?, ?, ?)", key, contentType, data)
	if err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}
	return key, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	var data []byte
	var contentType string
	err := s.db.QueryRowContext(ctx, "SELECT data, content_type FROM blobs WHERE key = ?", key).Scan(&data, &contentType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, contentType, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
