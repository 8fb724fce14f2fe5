// Package source resolves photo image URLs to bytes.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/senthil524/retroframe-v2-sub000/internal/backend/storage"
)

// DefaultMaxBytes bounds a single remote image download.
const DefaultMaxBytes = 64 << 20

var (
	ErrNotFound          = errors.New("image source not found")
	ErrUnsupportedScheme = errors.New("unsupported image source scheme")
	ErrTooLarge          = errors.New("image source exceeds size limit")
)

type Loader struct {
	blobs    storage.BlobStore
	client   *http.Client
	maxBytes int64
}

// NewLoader returns a loader for blob:// and http(s):// URLs. A nil client
// uses a client with a 30 second timeout.
func NewLoader(blobs storage.BlobStore, client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{blobs: blobs, client: client, maxBytes: DefaultMaxBytes}
}

// Load fetches the bytes behind url.
func (l *Loader) Load(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(url, storage.URLScheme):
		data, err = l.loadBlob(ctx, url)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		data, err = l.loadHTTP(ctx, url)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, url)
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("Source: loaded image",
		"url", url,
		"size", humanize.Bytes(uint64(len(data))),
		"duration_ms", time.Since(start).Milliseconds())
	return data, nil
}

func (l *Loader) loadBlob(ctx context.Context, url string) ([]byte, error) {
	key, ok := storage.KeyFromURL(url)
	if !ok {
		return nil, fmt.Errorf("%w: empty blob key", ErrNotFound)
	}
	if l.blobs == nil {
		return nil, fmt.Errorf("%w: no blob store configured", ErrUnsupportedScheme)
	}
	data, _, err := l.blobs.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blob %s: %w", key, err)
	}
	return data, nil
}

func (l *Loader) loadHTTP(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, fmt.Errorf("%w: %s returned %d", ErrNotFound, url, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s is larger than %s", ErrTooLarge, url, humanize.Bytes(uint64(l.maxBytes)))
	}
	return data, nil
}
