// Package printing renders cropped photos onto physical print cards and
// composes them into a print document. Every card re-derives its pixel
// transform from the persisted crop state.
package printing

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
)

var ErrInvalidGeometry = errors.New("invalid card geometry")

// CardGeometry describes the physical card. Lengths are in inches.
type CardGeometry struct {
	DPI              int     `yaml:"dpi"`
	CardWidthInches  float64 `yaml:"cardWidthInches"`
	CardHeightInches float64 `yaml:"cardHeightInches"`
	WindowInches     float64 `yaml:"windowInches"`
	WindowLeftInches float64 `yaml:"windowLeftInches"`
	WindowTopInches  float64 `yaml:"windowTopInches"`
	CaptionFontRatio float64 `yaml:"captionFontRatio"`
}

// DefaultCardGeometry is a 3.5"x4.2" card with a 3" square window at 300 DPI.
func DefaultCardGeometry() CardGeometry {
	return CardGeometry{
		DPI:              300,
		CardWidthInches:  3.5,
		CardHeightInches: 4.2,
		WindowInches:     3,
		WindowLeftInches: 0.25,
		WindowTopInches:  0.25,
		CaptionFontRatio: 0.045,
	}
}

// Validate rejects geometry that cannot be printed.
func (g CardGeometry) Validate() error {
	switch {
	case g.DPI < 72 || g.DPI > 1200:
		return fmt.Errorf("%w: dpi %d outside 72..1200", ErrInvalidGeometry, g.DPI)
	case !positive(g.CardWidthInches) || !positive(g.CardHeightInches):
		return fmt.Errorf("%w: card size %vx%v", ErrInvalidGeometry, g.CardWidthInches, g.CardHeightInches)
	case !positive(g.WindowInches):
		return fmt.Errorf("%w: window size %v", ErrInvalidGeometry, g.WindowInches)
	case g.WindowLeftInches < 0 || g.WindowTopInches < 0:
		return fmt.Errorf("%w: negative window inset", ErrInvalidGeometry)
	case g.WindowLeftInches+g.WindowInches > g.CardWidthInches:
		return fmt.Errorf("%w: window exceeds card width", ErrInvalidGeometry)
	case g.WindowTopInches+g.WindowInches > g.CardHeightInches:
		return fmt.Errorf("%w: window exceeds card height", ErrInvalidGeometry)
	case g.CaptionFontRatio < 0 || g.CaptionFontRatio > 0.2 || math.IsNaN(g.CaptionFontRatio):
		return fmt.Errorf("%w: caption font ratio %v outside 0..0.2", ErrInvalidGeometry, g.CaptionFontRatio)
	}
	return nil
}

func (g CardGeometry) px(inches float64) int {
	return int(math.Round(inches * float64(g.DPI)))
}

// CardBounds is the full card in device pixels.
func (g CardGeometry) CardBounds() image.Rectangle {
	return image.Rect(0, 0, g.px(g.CardWidthInches), g.px(g.CardHeightInches))
}

// WindowBounds is the photo window on the card.
func (g CardGeometry) WindowBounds() image.Rectangle {
	x, y := g.px(g.WindowLeftInches), g.px(g.WindowTopInches)
	side := g.px(g.WindowInches)
	return image.Rect(x, y, x+side, y+side)
}

// WindowSize is the print surface the crop is fitted to.
func (g CardGeometry) WindowSize() geometry.Size {
	r := g.WindowBounds()
	return geometry.NewSize(r.Dx(), r.Dy())
}

// CaptionBand is the strip below the window, inset like the window.
func (g CardGeometry) CaptionBand() image.Rectangle {
	card, win := g.CardBounds(), g.WindowBounds()
	return image.Rect(win.Min.X, win.Max.Y, win.Max.X, card.Max.Y)
}

// CaptionFontPixels scales the caption with the card's physical height.
func (g CardGeometry) CaptionFontPixels() float64 {
	return g.CaptionFontRatio * g.CardHeightInches * float64(g.DPI)
}

// PageSizePoints is the card size in PDF points.
func (g CardGeometry) PageSizePoints() (float64, float64) {
	return g.CardWidthInches * 72, g.CardHeightInches * 72
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
