// Package upload holds uploaded bytes in a temporary file until they are
// replaced by a durable URL. A session's temporary handle is released
// exactly once on success, failure or replacement.
package upload

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
)

// Session owns one temporary upload file.
type Session struct {
	file    *os.File
	size    int64
	once    sync.Once
	durable string
}

// Begin copies r to a new temporary file in dir (os.TempDir when empty).
// On copy failure the file is already released.
func Begin(dir string, r io.Reader) (*Session, error) {
	f, err := os.CreateTemp(dir, "retroframe-upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary upload file: %w", err)
	}
	s := &Session{file: f}
	n, err := io.Copy(f, r)
	if err != nil {
		s.Release()
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	s.size = n
	slog.Debug("Upload: buffered", "path", f.Name(), "size", humanize.Bytes(uint64(n)))
	return s, nil
}

// Path returns the temporary file path. It is empty once released.
func (s *Session) Path() string {
	if s.Released() {
		return ""
	}
	return s.file.Name()
}

// Size returns the number of buffered bytes.
func (s *Session) Size() int64 { return s.size }

// Bytes reads the buffered upload.
func (s *Session) Bytes() ([]byte, error) {
	if s.Released() {
		return nil, fmt.Errorf("upload already released")
	}
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind upload: %w", err)
	}
	data, err := io.ReadAll(s.file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

// Replace records the durable URL that supersedes the temporary file and
// releases the file.
func (s *Session) Replace(durableURL string) {
	s.durable = durableURL
	s.Release()
}

// DurableURL returns the URL set by Replace.
func (s *Session) DurableURL() string { return s.durable }

// Released reports whether the temporary file is gone.
func (s *Session) Released() bool {
	return s.file == nil
}

// Release closes and removes the temporary file. Safe to call repeatedly.
func (s *Session) Release() {
	s.once.Do(func() {
		name := s.file.Name()
		if err := s.file.Close(); err != nil {
			slog.Warn("Upload: failed to close temporary file", "path", name, "error", err)
		}
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			slog.Warn("Upload: failed to remove temporary file", "path", name, "error", err)
		}
		s.file = nil
	})
}
