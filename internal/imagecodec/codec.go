// Package imagecodec decodes uploaded photos and measures their intrinsic
// size. Raster formats are decoded with EXIF orientation applied, so the
// measured size is the size every renderer will see.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrEmptyImage = errors.New("empty image data")
	ErrBadImage   = errors.New("image could not be decoded")
)

// Codec decodes photo bytes. SVG documents without an explicit size are
// rasterized at the fallback size.
type Codec struct {
	svgFallbackWidth  int
	svgFallbackHeight int
}

// New returns a codec with the given SVG fallback raster size.
func New(svgFallbackWidth, svgFallbackHeight int) *Codec {
	return &Codec{
		svgFallbackWidth:  svgFallbackWidth,
		svgFallbackHeight: svgFallbackHeight,
	}
}

// Measurement is the result of probing an image without a full decode.
type Measurement struct {
	Width       int
	Height      int
	Format      string
	Orientation int
}

// Measure returns the oriented pixel size of data.
func (c *Codec) Measure(data []byte) (Measurement, error) {
	if len(data) == 0 {
		return Measurement{}, ErrEmptyImage
	}

	if isSVGData(data) {
		w, h, err := c.svgSize(data)
		if err != nil {
			return Measurement{}, err
		}
		return Measurement{Width: w, Height: h, Format: "svg", Orientation: 1}, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Measurement{}, fmt.Errorf("%w: %v", ErrBadImage, err)
	}

	m := Measurement{Width: cfg.Width, Height: cfg.Height, Format: format, Orientation: 1}
	if hasEXIF(format) {
		m.Orientation = exifOrientation(data)
		// Orientations 5..8 are transposed: width and height swap on display.
		if m.Orientation >= 5 && m.Orientation <= 8 {
			m.Width, m.Height = m.Height, m.Width
		}
	}

	slog.Debug("imagecodec: measured image",
		"format", m.Format,
		"width", m.Width,
		"height", m.Height,
		"orientation", m.Orientation)
	return m, nil
}

// Decode returns the oriented image.
func (c *Codec) Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	if isSVGData(data) {
		w, h, err := c.svgSize(data)
		if err != nil {
			return nil, err
		}
		img, err := renderSVG(data, w, h)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
		}
		return img, nil
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if hasEXIF(format) {
		img = orient(img, exifOrientation(data))
	}
	return img, nil
}

// hasEXIF reports whether Measure and Decode honor EXIF orientation for format.
func hasEXIF(format string) bool {
	return format == "jpeg" || format == "tiff"
}

// orient applies an EXIF orientation so the result displays upright.
func orient(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

// EncodePNG encodes img as PNG with default compression.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Codec) svgSize(data []byte) (int, int, error) {
	if w, h, ok := parseSvgExplicitSize(data); ok {
		return w, h, nil
	}
	if c.svgFallbackWidth <= 0 || c.svgFallbackHeight <= 0 {
		return 0, 0, fmt.Errorf("%w: SVG has no explicit size and no fallback size is configured", ErrBadImage)
	}
	return c.svgFallbackWidth, c.svgFallbackHeight, nil
}

// exifOrientation returns the EXIF orientation tag, 1 when absent.
func exifOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orient, err := tag.Int(0)
	if err != nil || orient < 1 || orient > 8 {
		return 1
	}
	return orient
}
