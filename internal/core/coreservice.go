package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/senthil524/retroframe-v2-sub000/internal/backend/database"
	"github.com/senthil524/retroframe-v2-sub000/internal/backend/source"
	"github.com/senthil524/retroframe-v2-sub000/internal/backend/storage"
	"github.com/senthil524/retroframe-v2-sub000/internal/crop"
	"github.com/senthil524/retroframe-v2-sub000/internal/editor"
	"github.com/senthil524/retroframe-v2-sub000/internal/effects"
	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
	"github.com/senthil524/retroframe-v2-sub000/internal/imagecodec"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
	"github.com/senthil524/retroframe-v2-sub000/internal/preview"
	"github.com/senthil524/retroframe-v2-sub000/internal/printing"
	"github.com/senthil524/retroframe-v2-sub000/internal/upload"
)

var (
	ErrInvalidImage     = errors.New("invalid image")
	ErrInvalidDirection = errors.New("direction must be up or down")
)

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	blobs           storage.BlobStore
	loader          *source.Loader
	codec           *imagecodec.Codec
	editor          *editor.Editor
	renderer        *printing.Renderer
	exporter        *printing.Exporter
}

func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}
	// Schema creation is idempotent and hands back the shared handle.
	db, err := databaseService.CreateDatabase()
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to open database handle: %w", err)
	}

	blobs, err := storage.NewBlobStore(config.Storage, db)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("storage initialized successfully", "type", config.Storage.Type)

	sessions, err := editor.NewSessionStore(config.Sessions.Type, config.Sessions.Address, config.Sessions.TTL)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	renderer, err := printing.NewRenderer(config.Print.CardGeometry, config.Print.Resampler)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize print renderer: %w", err)
	}

	loader := source.NewLoader(blobs, nil)
	codec := imagecodec.New(config.SVGFallbackWidth, config.SVGFallbackHeight)
	return &CoreService{
		config:          config,
		databaseService: databaseService,
		blobs:           blobs,
		loader:          loader,
		codec:           codec,
		editor:          editor.New(sessions, config.Editor.WheelSensitivity),
		renderer:        renderer,
		exporter:        printing.NewExporter(renderer, loader, codec, config.Print.LowResDPI),
	}, nil
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Close() error {
	return service.databaseService.Close()
}

// AddPhoto buffers r in an upload session, measures it, moves it to durable
// storage and registers it at the end of the order.
func (service *CoreService) AddPhoto(ctx context.Context, orderID string, r io.Reader) (*photo.Photo, error) {
	start := time.Now()
	session, err := upload.Begin(service.config.UploadDir, r)
	if err != nil {
		return nil, err
	}
	defer session.Release()

	data, err := session.Bytes()
	if err != nil {
		return nil, err
	}
	m, err := service.codec.Measure(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	key, err := service.blobs.Put(ctx, data, contentType(m.Format))
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	url := storage.URL(key)
	session.Replace(url)

	p := photo.New(uuid.NewString(), orderID, url, m.Width, m.Height)
	if err := service.databaseService.CreatePhoto(ctx, p); err != nil {
		if derr := service.blobs.Delete(ctx, key); derr != nil {
			slog.Warn("CoreService: failed to remove orphaned blob", "key", key, "error", derr)
		}
		return nil, fmt.Errorf("failed to register photo: %w", err)
	}

	slog.Info("CoreService: photo added",
		"photo", p.ID,
		"order", orderID,
		"format", m.Format,
		"width", m.Width,
		"height", m.Height,
		"size", humanize.Bytes(uint64(len(data))),
		"duration_ms", time.Since(start).Milliseconds())
	return p, nil
}

// ImportPhoto registers a photo hosted elsewhere. A source that cannot be
// measured yet is registered as pending measurement.
func (service *CoreService) ImportPhoto(ctx context.Context, orderID, url string) (*photo.Photo, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return nil, fmt.Errorf("%w: %q", source.ErrUnsupportedScheme, url)
	}
	p := photo.New(uuid.NewString(), orderID, url, 0, 0)
	if m, err := service.measureSource(ctx, url); err != nil {
		slog.Warn("CoreService: imported photo pending measurement", "url", url, "error", err)
	} else {
		p.IntrinsicWidth, p.IntrinsicHeight = m.Width, m.Height
	}
	if err := service.databaseService.CreatePhoto(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to register photo: %w", err)
	}
	return p, nil
}

// MeasurePhoto retries measurement of a pending photo. Measured photos are
// returned unchanged; intrinsic size is measured once.
func (service *CoreService) MeasurePhoto(ctx context.Context, id string) (*photo.Photo, error) {
	p, err := service.databaseService.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Measured() {
		return p, nil
	}
	m, err := service.measureSource(ctx, p.ImageSource)
	if err != nil {
		return nil, err
	}
	if err := service.databaseService.SetIntrinsicSize(ctx, id, m.Width, m.Height); err != nil {
		return nil, err
	}
	p.IntrinsicWidth, p.IntrinsicHeight = m.Width, m.Height
	return p, nil
}

func (service *CoreService) measureSource(ctx context.Context, url string) (imagecodec.Measurement, error) {
	data, err := service.loader.Load(ctx, url)
	if err != nil {
		return imagecodec.Measurement{}, err
	}
	m, err := service.codec.Measure(data)
	if err != nil {
		return imagecodec.Measurement{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return m, nil
}

func (service *CoreService) GetPhoto(ctx context.Context, id string) (*photo.Photo, error) {
	return service.databaseService.GetPhoto(ctx, id)
}

func (service *CoreService) ListPhotos(ctx context.Context, orderID string) ([]*photo.Photo, error) {
	return service.databaseService.ListPhotos(ctx, orderID)
}

// DeletePhoto removes the photo and its durable blob, if it owns one.
func (service *CoreService) DeletePhoto(ctx context.Context, id string) error {
	p, err := service.databaseService.GetPhoto(ctx, id)
	if err != nil {
		return err
	}
	if err := service.databaseService.DeletePhoto(ctx, id); err != nil {
		return err
	}
	if key, ok := storage.KeyFromURL(p.ImageSource); ok {
		if err := service.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			slog.Warn("CoreService: failed to delete blob", "photo", id, "key", key, "error", err)
		}
	}
	return nil
}

// DisplayUpdate changes the card attributes of a photo. Empty border and
// effect values keep the current ones.
type DisplayUpdate struct {
	BorderColor string `json:"borderColor" validate:"omitempty,oneof=white black cream red blue green pink yellow"`
	Effect      string `json:"effect" validate:"omitempty,oneof=original noir sepia vivid retro"`
	Caption     string `json:"caption" validate:"max=400"`
}

func (service *CoreService) UpdateDisplay(ctx context.Context, id string, update DisplayUpdate) (*photo.Photo, error) {
	p, err := service.databaseService.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}

	border := p.BorderColor
	if update.BorderColor != "" {
		if border, err = photo.ParseBorderColor(update.BorderColor); err != nil {
			return nil, err
		}
	}
	effect := p.Effect
	if update.Effect != "" {
		if _, err := effects.Lookup(effects.Name(update.Effect)); err != nil {
			return nil, err
		}
		effect = effects.Name(update.Effect)
	}
	caption := photo.CleanCaption(update.Caption, service.config.CaptionMaxLength)

	if err := service.databaseService.UpdateDisplay(ctx, id, border, effect, caption); err != nil {
		return nil, err
	}
	p.BorderColor, p.Effect, p.Caption = border, effect, caption
	return p, nil
}

// MovePhoto swaps the photo with its neighbour and returns the new order.
// Moving past either end is a no-op.
func (service *CoreService) MovePhoto(ctx context.Context, id, dir string) ([]*photo.Photo, error) {
	dir = strings.ToLower(strings.TrimSpace(dir))
	if dir != "up" && dir != "down" {
		return nil, ErrInvalidDirection
	}
	p, err := service.databaseService.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	photos, err := service.databaseService.ListPhotos(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range photos {
		if photos[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, database.ErrNotFound
	}

	switch dir {
	case "up":
		if idx > 0 {
			photos[idx], photos[idx-1] = photos[idx-1], photos[idx]
		}
	case "down":
		if idx < len(photos)-1 {
			photos[idx], photos[idx+1] = photos[idx+1], photos[idx]
		}
	}

	order := make([]string, len(photos))
	for i, p := range photos {
		order[i] = p.ID
	}
	if err := service.databaseService.UpdatePhotoOrder(ctx, p.OrderID, order); err != nil {
		return nil, err
	}
	return photos, nil
}

// PreviewLayout lays out the photo in a container of the given size.
func (service *CoreService) PreviewLayout(ctx context.Context, id string, container geometry.Size, loaded, failed bool) (*photo.Photo, preview.Layout, error) {
	p, err := service.databaseService.GetPhoto(ctx, id)
	if err != nil {
		return nil, preview.Layout{}, err
	}
	return p, service.Layout(p, container, loaded, failed), nil
}

// Layout renders the preview of an already loaded photo record.
func (service *CoreService) Layout(p *photo.Photo, container geometry.Size, loaded, failed bool) preview.Layout {
	return preview.Render(preview.Input{
		Crop:      p.CropState,
		Intrinsic: p.Intrinsic(),
		Container: container,
		Filter:    p.Filter(),
		Loaded:    loaded,
		Failed:    failed,
	})
}

// RenderCard renders a single print card as PNG.
func (service *CoreService) RenderCard(ctx context.Context, id string) ([]byte, float64, error) {
	p, err := service.databaseService.GetPhoto(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	if !p.Measured() {
		return nil, 0, editor.ErrNotMeasurable
	}
	img, err := service.decodeSource(ctx, p.ImageSource)
	if err != nil {
		return nil, 0, err
	}
	card, pl := service.renderer.RenderCard(img, p)
	data, err := imagecodec.EncodePNG(card)
	if err != nil {
		return nil, 0, err
	}
	return data, service.renderer.EffectiveDPI(pl), nil
}

// Thumbnail returns the source image scaled down to at most width pixels
// wide, as PNG. Smaller sources are not enlarged.
func (service *CoreService) Thumbnail(ctx context.Context, id string, width int) ([]byte, error) {
	p, err := service.databaseService.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	img, err := service.decodeSource(ctx, p.ImageSource)
	if err != nil {
		return nil, err
	}
	if width > 0 && img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	return imagecodec.EncodePNG(img)
}

func (service *CoreService) decodeSource(ctx context.Context, url string) (image.Image, error) {
	data, err := service.loader.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	img, err := service.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// BeginEdit opens an edit session for the photo on an editing surface.
func (service *CoreService) BeginEdit(ctx context.Context, id string, surface geometry.Size) (*editor.Session, error) {
	p, err := service.databaseService.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	return service.editor.Begin(ctx, p, surface)
}

func (service *CoreService) GetEdit(ctx context.Context, sessionID string) (*editor.Session, error) {
	return service.editor.Get(ctx, sessionID)
}

func (service *CoreService) DispatchEdit(ctx context.Context, sessionID string, events []editor.Event) (*editor.Session, error) {
	return service.editor.Dispatch(ctx, sessionID, events)
}

// ConfirmEdit persists the normalized crop state of the session. This is
// the only path that writes crop state.
func (service *CoreService) ConfirmEdit(ctx context.Context, sessionID string) (*photo.Photo, error) {
	session, _, err := service.editor.Confirm(ctx, sessionID, func(ctx context.Context, photoID string, state crop.State) error {
		if err := service.databaseService.UpdateCropState(ctx, photoID, state); err != nil {
			return fmt.Errorf("failed to persist crop state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return service.databaseService.GetPhoto(ctx, session.PhotoID)
}

func (service *CoreService) CancelEdit(ctx context.Context, sessionID string) (*editor.Session, error) {
	return service.editor.Cancel(ctx, sessionID)
}

// PrintJob is a rendered order waiting to be written out. Close releases
// its page buffer.
type PrintJob struct {
	Report   *printing.Report
	composer *printing.PDFComposer
}

// Compose writes the PDF document to w.
func (job *PrintJob) Compose(w io.Writer) error {
	return job.composer.Compose(w)
}

func (job *PrintJob) Close() error {
	return job.composer.Close()
}

// PrintOrder renders every photo of the order into a print job. Photos that
// fail to load are listed in the report; an order with no printable photo
// fails with printing.ErrNoPages.
func (service *CoreService) PrintOrder(ctx context.Context, orderID string) (*PrintJob, error) {
	photos, err := service.databaseService.ListPhotos(ctx, orderID)
	if err != nil {
		return nil, err
	}
	composer, err := printing.NewPDFComposer(service.config.UploadDir, service.renderer.Geometry())
	if err != nil {
		return nil, err
	}
	report, err := service.exporter.Export(ctx, photos, composer)
	if err != nil {
		_ = composer.Close()
		return nil, err
	}
	if composer.PageCount() == 0 {
		_ = composer.Close()
		return nil, printing.ErrNoPages
	}
	return &PrintJob{Report: report, composer: composer}, nil
}

// Blob returns durable bytes by key.
func (service *CoreService) Blob(ctx context.Context, key string) ([]byte, string, error) {
	return service.blobs.Get(ctx, key)
}

func contentType(format string) string {
	if format == "svg" {
		return "image/svg+xml"
	}
	return "image/" + format
}
