package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `port: 9090
database:
  type: sqlite
  connectionString: ":memory:"
sessions:
  type: memory
  ttl: 10m
editor:
  wheelSensitivity: 0.002
print:
  dpi: 600
  resampler: rez
captionMaxLength: 30
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.Sessions.TTL != 10*time.Minute {
		t.Errorf("Expected ttl 10m, got %v", config.Sessions.TTL)
	}
	if config.Editor.WheelSensitivity != 0.002 {
		t.Errorf("Expected wheel sensitivity 0.002, got %v", config.Editor.WheelSensitivity)
	}
	if config.Print.DPI != 600 || config.Print.Resampler != "rez" {
		t.Errorf("Expected dpi 600 with rez, got %d with %s", config.Print.DPI, config.Print.Resampler)
	}
	// Fields left out of the print section keep the default card.
	if config.Print.WindowInches != 3 || config.Print.CardHeightInches != 4.2 {
		t.Errorf("Expected default window geometry, got %+v", config.Print.CardGeometry)
	}
	if config.CaptionMaxLength != 30 {
		t.Errorf("Expected caption max length 30, got %d", config.CaptionMaxLength)
	}
	if config.Storage.Type != "sqlite" {
		t.Errorf("Expected default sqlite storage, got %s", config.Storage.Type)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.Port)
	}
	if config.Database.ConnectionString != "file:retroframe.db" {
		t.Errorf("Unexpected default connection string %q", config.Database.ConnectionString)
	}
	if config.Sessions.TTL != 30*time.Minute {
		t.Errorf("Expected default ttl 30m, got %v", config.Sessions.TTL)
	}
	if config.Print.DPI != 300 || config.Print.LowResDPI != 150 {
		t.Errorf("Expected 300 dpi with 150 low-res threshold, got %d and %v", config.Print.DPI, config.Print.LowResDPI)
	}
	if config.ThumbnailWidth != 240 || config.CaptionMaxLength != 40 {
		t.Errorf("Unexpected defaults: thumbnail %d, caption %d", config.ThumbnailWidth, config.CaptionMaxLength)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown database", "database: {type: mongo}\n", "unsupported database type"},
		{"unknown storage", "storage: {type: ftp}\n", "unsupported storage type"},
		{"s3 without bucket", "storage: {type: s3}\n", "bucket"},
		{"redis without address", "sessions: {type: redis}\n", "address"},
		{"unknown resampler", "print: {resampler: lanczos9}\n", "unknown resampler"},
		{"window exceeds card", "print: {windowInches: 5}\n", "invalid card geometry"},
		{"negative wheel", "editor: {wheelSensitivity: -1}\n", "wheel sensitivity"},
		{"bad yaml", "port: [\n", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("Expected error, got config %+v", config)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Fatalf("Expected default config to be valid, got %v", err)
	}
	if config.Database.ConnectionString != ":memory:" {
		t.Errorf("Expected in-memory database, got %q", config.Database.ConnectionString)
	}
}
