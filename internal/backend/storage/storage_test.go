package storage

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	_ "modernc.org/sqlite"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLiteStore(db)
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	return store
}

// fakeS3 serves path-style object requests from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = body
		f.types[path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[path])
		_, _ = w.Write(body)
	case http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newS3Store(t *testing.T) *S3Store {
	t.Helper()
	srv := httptest.NewServer(&fakeS3{objects: map[string][]byte{}, types: map[string]string{}})
	t.Cleanup(srv.Close)

	store, err := NewS3Store(Config{
		Type:             "s3",
		Bucket:           "photos",
		Region:           "us-east-1",
		Endpoint:         srv.URL,
		AccessKey:        "key",
		AccessSecret:     "secret",
		S3ForcePathStyle: true,
		DisableSSL:       true,
	})
	if err != nil {
		t.Fatalf("NewS3Store error: %v", err)
	}
	return store
}

func TestBlobStores_RoundTrip(t *testing.T) {
	stores := map[string]BlobStore{
		"sqlite": newSQLiteStore(t),
		"s3":     newS3Store(t),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			key, err := store.Put(ctx, []byte{0x89, 'P', 'N', 'G'}, "image/png")
			if err != nil {
				t.Fatalf("Put error: %v", err)
			}
			if key == "" {
				t.Fatal("expected a key")
			}

			data, contentType, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if string(data) != "\x89PNG" || contentType != "image/png" {
				t.Errorf("unexpected blob %q (%s)", data, contentType)
			}

			if err := store.Delete(ctx, key); err != nil {
				t.Fatalf("Delete error: %v", err)
			}
			if _, _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestNewBlobStore(t *testing.T) {
	if _, err := NewBlobStore(Config{Type: "ftp"}, nil); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("expected unsupported storage error, got %v", err)
	}
	if _, err := NewBlobStore(Config{Type: "s3"}, nil); err == nil {
		t.Error("expected error for s3 without bucket")
	}
	if _, err := NewBlobStore(Config{Type: "sqlite"}, nil); err == nil {
		t.Error("expected error for sqlite without database")
	}
}

func TestKeyFromURL(t *testing.T) {
	tests := []struct {
		url    string
		key    string
		wantOk bool
	}{
		{"blob://abc", "abc", true},
		{URL("k-1"), "k-1", true},
		{"blob://", "", false},
		{"https://example.com/a.png", "", false},
	}
	for _, tt := range tests {
		key, ok := KeyFromURL(tt.url)
		if key != tt.key || ok != tt.wantOk {
			t.Errorf("KeyFromURL(%q) = (%q, %v), want (%q, %v)", tt.url, key, ok, tt.key, tt.wantOk)
		}
	}
}
