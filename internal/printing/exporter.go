package printing

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/senthil524/retroframe-v2-sub000/internal/imagecodec"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
)

// DefaultLowResDPI flags cards printed from fewer source pixels per inch.
const DefaultLowResDPI = 150

// Loader fetches the bytes behind an image source URL.
type Loader interface {
	Load(ctx context.Context, url string) ([]byte, error)
}

// Decoder turns image bytes into an oriented image.
type Decoder interface {
	Decode(data []byte) (image.Image, error)
}

// PageSink receives encoded card pages in print order.
type PageSink interface {
	AddPage(ctx context.Context, png []byte) error
}

// Exporter renders photos to a sink one at a time. At most one decoded
// image and one card canvas are alive at any moment.
type Exporter struct {
	renderer  *Renderer
	loader    Loader
	decoder   Decoder
	lowResDPI float64
}

func NewExporter(renderer *Renderer, loader Loader, decoder Decoder, lowResDPI float64) *Exporter {
	if lowResDPI <= 0 {
		lowResDPI = DefaultLowResDPI
	}
	return &Exporter{
		renderer:  renderer,
		loader:    loader,
		decoder:   decoder,
		lowResDPI: lowResDPI,
	}
}

// Export renders photos in order. A photo that cannot be loaded, decoded or
// measured is recorded as skipped and the batch continues. Cancellation is
// checked before each photo and ends the export with the partial report.
func (e *Exporter) Export(ctx context.Context, photos []*photo.Photo, sink PageSink) (*Report, error) {
	start := time.Now()
	report := &Report{}
	var total uint64

	for i, p := range photos {
		if err := ctx.Err(); err != nil {
			slog.Warn("Printing: export cancelled", "completed", len(report.Pages), "remaining", len(photos)-i)
			return report, fmt.Errorf("print export cancelled: %w", err)
		}

		page, data, err := e.renderOne(ctx, i, p)
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("print export cancelled: %w", ctx.Err())
			}
			skip := Skip{Index: i, PhotoID: p.ID, Reason: err.Error()}
			report.Skipped = append(report.Skipped, skip)
			slog.Warn("Printing: skipped photo", "index", i, "photo", p.ID, "error", err)
			continue
		}

		if err := sink.AddPage(ctx, data); err != nil {
			return report, fmt.Errorf("failed to add page for photo %s: %w", p.ID, err)
		}
		total += uint64(len(data))
		report.Pages = append(report.Pages, page)
		if page.LowRes {
			slog.Warn("Printing: low resolution photo",
				"index", i,
				"photo", p.ID,
				"effective_dpi", page.EffectiveDPI,
				"threshold", e.lowResDPI)
		}
	}

	slog.Info("Printing: export finished",
		"pages", len(report.Pages),
		"skipped", len(report.Skipped),
		"size", humanize.Bytes(total),
		"duration_ms", time.Since(start).Milliseconds())
	return report, nil
}

// renderOne runs load, decode, render and encode for one photo. Nothing it
// allocates outlives the call except the encoded page.
func (e *Exporter) renderOne(ctx context.Context, index int, p *photo.Photo) (Page, []byte, error) {
	if !p.Measured() {
		return Page{}, nil, fmt.Errorf("pending measurement")
	}
	raw, err := e.loader.Load(ctx, p.ImageSource)
	if err != nil {
		return Page{}, nil, fmt.Errorf("load: %w", err)
	}
	img, err := e.decoder.Decode(raw)
	if err != nil {
		return Page{}, nil, fmt.Errorf("decode: %w", err)
	}

	card, pl := e.renderer.RenderCard(img, p)
	data, err := imagecodec.EncodePNG(card)
	if err != nil {
		return Page{}, nil, fmt.Errorf("encode: %w", err)
	}

	dpi := e.renderer.EffectiveDPI(pl)
	return Page{
		Index:        index,
		PhotoID:      p.ID,
		EffectiveDPI: dpi,
		LowRes:       dpi > 0 && dpi < e.lowResDPI,
	}, data, nil
}
