package core

import (
	"fmt"
	"os"
	"time"

	"github.com/senthil524/retroframe-v2-sub000/internal/backend/storage"
	"github.com/senthil524/retroframe-v2-sub000/internal/editor"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
	"github.com/senthil524/retroframe-v2-sub000/internal/printing"
	"gopkg.in/yaml.v3"
)

const (
	defaultPort              = 8080
	defaultSessionTTL        = 30 * time.Minute
	defaultThumbnailWidth    = 240
	defaultSVGFallbackWidth  = 1000
	defaultSVGFallbackHeight = 1000
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

// Sessions selects where edit sessions live between requests.
type Sessions struct {
	Type    string        `yaml:"type"`
	Address string        `yaml:"address"`
	TTL     time.Duration `yaml:"ttl"`
}

type Editor struct {
	WheelSensitivity float64 `yaml:"wheelSensitivity"`
}

// Print holds the card geometry plus export settings.
type Print struct {
	printing.CardGeometry `yaml:",inline"`
	Resampler             string  `yaml:"resampler"`
	LowResDPI             float64 `yaml:"lowResDPI"`
}

type ServiceConfig struct {
	Port              int            `yaml:"port"`
	Database          Database       `yaml:"database"`
	Storage           storage.Config `yaml:"storage"`
	Sessions          Sessions       `yaml:"sessions"`
	Editor            Editor         `yaml:"editor"`
	Print             Print          `yaml:"print"`
	CaptionMaxLength  int            `yaml:"captionMaxLength"`
	ThumbnailWidth    int            `yaml:"thumbnailWidth"`
	SVGFallbackWidth  int            `yaml:"svgFallbackWidth"`
	SVGFallbackHeight int            `yaml:"svgFallbackHeight"`

	// UploadDir holds temporary uploads and print page buffers.
	UploadDir string `yaml:"uploadDir"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

// DefaultConfig returns a configuration backed by an in-memory database.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{
		Database: Database{Type: "sqlite", ConnectionString: ":memory:"},
	}
	config.applyDefaults()
	return config
}

// applyDefaults fills zero values field by field, so a partial print
// section keeps the default card for everything it leaves out.
func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.ConnectionString == "" {
		c.Database.ConnectionString = "file:retroframe.db"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "sqlite"
	}
	if c.Sessions.Type == "" {
		c.Sessions.Type = "memory"
	}
	if c.Sessions.TTL == 0 {
		c.Sessions.TTL = defaultSessionTTL
	}
	if c.Editor.WheelSensitivity == 0 {
		c.Editor.WheelSensitivity = editor.DefaultWheelSensitivity
	}

	card := printing.DefaultCardGeometry()
	p := &c.Print
	if p.DPI == 0 {
		p.DPI = card.DPI
	}
	if p.CardWidthInches == 0 {
		p.CardWidthInches = card.CardWidthInches
	}
	if p.CardHeightInches == 0 {
		p.CardHeightInches = card.CardHeightInches
	}
	if p.WindowInches == 0 {
		p.WindowInches = card.WindowInches
	}
	if p.WindowLeftInches == 0 {
		p.WindowLeftInches = card.WindowLeftInches
	}
	if p.WindowTopInches == 0 {
		p.WindowTopInches = card.WindowTopInches
	}
	if p.CaptionFontRatio == 0 {
		p.CaptionFontRatio = card.CaptionFontRatio
	}
	if p.Resampler == "" {
		p.Resampler = printing.DefaultResampler
	}
	if p.LowResDPI == 0 {
		p.LowResDPI = printing.DefaultLowResDPI
	}

	if c.CaptionMaxLength == 0 {
		c.CaptionMaxLength = photo.DefaultCaptionMaxLength
	}
	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = defaultThumbnailWidth
	}
	if c.SVGFallbackWidth == 0 {
		c.SVGFallbackWidth = defaultSVGFallbackWidth
	}
	if c.SVGFallbackHeight == 0 {
		c.SVGFallbackHeight = defaultSVGFallbackHeight
	}
}

// Validate rejects configurations the service cannot start with.
func (c *ServiceConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	switch c.Storage.Type {
	case "sqlite":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("s3 storage requires a bucket")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	switch c.Sessions.Type {
	case "memory":
	case "redis":
		if c.Sessions.Address == "" {
			return fmt.Errorf("redis sessions require an address")
		}
	default:
		return fmt.Errorf("unsupported session store: %s", c.Sessions.Type)
	}
	if c.Sessions.TTL < 0 {
		return fmt.Errorf("session ttl must not be negative")
	}
	if c.Editor.WheelSensitivity <= 0 {
		return fmt.Errorf("wheel sensitivity must be positive, got %v", c.Editor.WheelSensitivity)
	}
	if err := c.Print.CardGeometry.Validate(); err != nil {
		return err
	}
	if !printing.DefaultResamplers.IsRegistered(c.Print.Resampler) {
		return fmt.Errorf("unknown resampler: %s", c.Print.Resampler)
	}
	if c.Print.LowResDPI < 0 {
		return fmt.Errorf("low resolution threshold must not be negative")
	}
	if c.CaptionMaxLength < 1 {
		return fmt.Errorf("caption max length must be positive")
	}
	if c.ThumbnailWidth < 1 {
		return fmt.Errorf("thumbnail width must be positive")
	}
	if c.SVGFallbackWidth < 1 || c.SVGFallbackHeight < 1 {
		return fmt.Errorf("svg fallback size must be positive")
	}
	return nil
}
