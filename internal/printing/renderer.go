package printing

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"

	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Renderer draws print cards for one card geometry.
type Renderer struct {
	geometry  CardGeometry
	resampler draw.Transformer
	captions  *captionFace
}

// NewRenderer validates g and resolves the resampler by name.
func NewRenderer(g CardGeometry, resampler string) (*Renderer, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if resampler == "" {
		resampler = DefaultResampler
	}
	t, err := DefaultResamplers.Create(resampler)
	if err != nil {
		return nil, err
	}
	face, err := newCaptionFace(g.CaptionFontPixels())
	if err != nil {
		return nil, fmt.Errorf("failed to load caption font: %w", err)
	}
	return &Renderer{geometry: g, resampler: t, captions: face}, nil
}

// Geometry returns the card geometry.
func (r *Renderer) Geometry() CardGeometry {
	return r.geometry
}

// Placement is the source-to-window transform of one photo.
type Placement struct {
	Scale   float64
	Offset  geometry.Point
	Zoom    float64
	Fit     geometry.Size
	Matrix  f64.Aff3
	Visible bool
}

// Place derives the transform of p onto the print window from its persisted
// crop state. The source size is the decoded image size.
func (r *Renderer) Place(p *photo.Photo, source image.Rectangle) Placement {
	window := r.geometry.WindowSize()
	intrinsic := geometry.NewSize(source.Dx(), source.Dy())
	px := p.CropState.Pixels(window, intrinsic)
	if px.Fit.IsZero() {
		return Placement{Zoom: px.Zoom}
	}

	s := geometry.CoverScale(window, intrinsic) * px.Zoom
	tx := window.Width/2 + px.Offset.X - intrinsic.Width*s/2 - float64(source.Min.X)*s
	ty := window.Height/2 + px.Offset.Y - intrinsic.Height*s/2 - float64(source.Min.Y)*s
	return Placement{
		Scale:   s,
		Offset:  px.Offset,
		Zoom:    px.Zoom,
		Fit:     px.Fit,
		Matrix:  f64.Aff3{s, 0, tx, 0, s, ty},
		Visible: true,
	}
}

// EffectiveDPI is the number of source pixels per printed inch.
func (r *Renderer) EffectiveDPI(pl Placement) float64 {
	if !pl.Visible || pl.Scale <= 0 {
		return 0
	}
	return math.Round(float64(r.geometry.DPI)/pl.Scale*10) / 10
}

// RenderPhoto draws img onto a canvas the size of the photo window. The
// canvas bounds are the clip; nothing outside the window is drawn.
func (r *Renderer) RenderPhoto(img image.Image, p *photo.Photo) (*image.RGBA, Placement) {
	win := r.geometry.WindowBounds()
	canvas := image.NewRGBA(image.Rect(0, 0, win.Dx(), win.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	pl := r.Place(p, img.Bounds())
	if !pl.Visible {
		slog.Warn("Printing: photo not measurable, drawing empty window", "photo", p.ID)
		return canvas, pl
	}

	if p.Measured() && !sameAspect(p.Intrinsic(), geometry.NewSize(img.Bounds().Dx(), img.Bounds().Dy())) {
		slog.Warn("Printing: decoded size disagrees with stored intrinsic size",
			"photo", p.ID,
			"stored_width", p.IntrinsicWidth,
			"stored_height", p.IntrinsicHeight,
			"decoded_width", img.Bounds().Dx(),
			"decoded_height", img.Bounds().Dy())
	}

	transformer := r.resampler
	// Pure translation needs no kernel.
	if pl.Matrix[0] == 1 && pl.Matrix[4] == 1 {
		transformer = draw.NearestNeighbor
	}
	transformer.Transform(canvas, pl.Matrix, img, img.Bounds(), draw.Over, nil)

	slog.Debug("Printing: placed photo",
		"photo", p.ID,
		"scale", pl.Scale,
		"zoom", pl.Zoom,
		"offset_x", pl.Offset.X,
		"offset_y", pl.Offset.Y)

	filter := p.Filter()
	if filter.IsIdentity() {
		return canvas, pl
	}
	filtered := filter.Apply(canvas)
	out := image.NewRGBA(filtered.Bounds())
	draw.Draw(out, out.Bounds(), filtered, filtered.Bounds().Min, draw.Src)
	return out, pl
}

// RenderCard composes the full card: border fill, photo window and caption.
func (r *Renderer) RenderCard(img image.Image, p *photo.Photo) (*image.RGBA, Placement) {
	card := image.NewRGBA(r.geometry.CardBounds())
	draw.Draw(card, card.Bounds(), image.NewUniform(p.BorderColor.RGBA()), image.Point{}, draw.Src)

	window, pl := r.RenderPhoto(img, p)
	win := r.geometry.WindowBounds()
	draw.Draw(card, win, window, image.Point{}, draw.Src)

	if p.Caption != "" {
		r.captions.draw(card, r.geometry.CaptionBand(), p.Caption, p.BorderColor.TextColor())
	}
	return card, pl
}

func sameAspect(a, b geometry.Size) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return math.Abs(a.Aspect()-b.Aspect()) < 0.01
}
