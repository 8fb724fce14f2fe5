package printing

import (
	"image"
	"image/color"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const ellipsis = "…"

// captionFace serializes use of the font face, which is not safe for
// concurrent use.
type captionFace struct {
	mu   sync.Mutex
	face font.Face
}

// newCaptionFace loads Go Regular at sizePx device pixels.
func newCaptionFace(sizePx float64) (*captionFace, error) {
	if sizePx < 1 {
		sizePx = 1
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	return &captionFace{face: face}, nil
}

// fit truncates text with an ellipsis until it is at most maxWidth wide.
func (c *captionFace) fit(text string, maxWidth int) string {
	if font.MeasureString(c.face, text).Ceil() <= maxWidth {
		return text
	}
	runes := []rune(text)
	for n := len(runes) - 1; n > 0; n-- {
		trial := strings.TrimRight(string(runes[:n]), " ") + ellipsis
		if font.MeasureString(c.face, trial).Ceil() <= maxWidth {
			return trial
		}
	}
	return ""
}

// draw centers text horizontally and vertically in band.
func (c *captionFace) draw(dst draw.Image, band image.Rectangle, text string, ink color.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text = c.fit(text, band.Dx())
	if text == "" {
		return
	}
	m := c.face.Metrics()
	width := font.MeasureString(c.face, text).Ceil()
	textHeight := (m.Ascent + m.Descent).Ceil()
	x := band.Min.X + (band.Dx()-width)/2
	y := band.Min.Y + (band.Dy()-textHeight)/2 + m.Ascent.Ceil()

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: c.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
