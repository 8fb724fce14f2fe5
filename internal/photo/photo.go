// Package photo defines the Photo record the crop core consumes and produces.
package photo

import (
	"errors"
	"fmt"
	"html"
	"image/color"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/senthil524/retroframe-v2-sub000/internal/crop"
	"github.com/senthil524/retroframe-v2-sub000/internal/effects"
	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
)

// DefaultCaptionMaxLength caps captions, counted in runes.
const DefaultCaptionMaxLength = 40

var ErrInvalidBorderColor = errors.New("invalid border color")

// Photo is one uploaded photo and its display attributes.
type Photo struct {
	ID              string       `json:"id"`
	OrderID         string       `json:"orderId"`
	ImageSource     string       `json:"imageSource"`
	IntrinsicWidth  int          `json:"intrinsicWidth"`
	IntrinsicHeight int          `json:"intrinsicHeight"`
	CropState       crop.State   `json:"cropState"`
	BorderColor     BorderColor  `json:"borderColor"`
	Effect          effects.Name `json:"effect"`
	Caption         string       `json:"caption"`
	Rank            string       `json:"-"`
}

// New returns a photo with identity crop and default display attributes.
func New(id, orderID, source string, width, height int) *Photo {
	return &Photo{
		ID:              id,
		OrderID:         orderID,
		ImageSource:     source,
		IntrinsicWidth:  width,
		IntrinsicHeight: height,
		CropState:       crop.Identity(),
		BorderColor:     White,
		Effect:          effects.Original,
	}
}

// Intrinsic returns the natural pixel size.
func (p *Photo) Intrinsic() geometry.Size {
	return geometry.NewSize(p.IntrinsicWidth, p.IntrinsicHeight)
}

// Measured reports whether fit math may run for this photo. Unmeasured
// photos are "pending measurement" and render nothing.
func (p *Photo) Measured() bool {
	return p.IntrinsicWidth > 0 && p.IntrinsicHeight > 0
}

// Filter resolves the effect preset, falling back to identity.
func (p *Photo) Filter() effects.FilterSpec {
	return effects.Resolve(p.Effect)
}

// BorderColor is one of the eight card frame colors.
type BorderColor string

const (
	White  BorderColor = "white"
	Black  BorderColor = "black"
	Cream  BorderColor = "cream"
	Red    BorderColor = "red"
	Blue   BorderColor = "blue"
	Green  BorderColor = "green"
	Pink   BorderColor = "pink"
	Yellow BorderColor = "yellow"
)

var borderPalette = map[BorderColor]color.RGBA{
	White:  {255, 255, 255, 255},
	Black:  {24, 24, 24, 255},
	Cream:  {245, 238, 220, 255},
	Red:    {196, 48, 43, 255},
	Blue:   {38, 84, 160, 255},
	Green:  {52, 122, 78, 255},
	Pink:   {240, 170, 190, 255},
	Yellow: {246, 211, 76, 255},
}

// ParseBorderColor validates a color name.
func ParseBorderColor(name string) (BorderColor, error) {
	c := BorderColor(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := borderPalette[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidBorderColor, name)
	}
	return c, nil
}

// RGBA returns the print color, white for unknown names.
func (c BorderColor) RGBA() color.RGBA {
	if rgba, ok := borderPalette[c]; ok {
		return rgba
	}
	return borderPalette[White]
}

// Hex returns the CSS hex color.
func (c BorderColor) Hex() string {
	rgba := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B)
}

// TextColor picks black or white caption ink for readability on the border.
func (c BorderColor) TextColor() color.RGBA {
	rgba := c.RGBA()
	luma := 0.2126*float64(rgba.R) + 0.7152*float64(rgba.G) + 0.0722*float64(rgba.B)
	if luma < 127.5 {
		return color.RGBA{245, 245, 245, 255}
	}
	return color.RGBA{20, 20, 20, 255}
}

var captionPolicy = bluemonday.StrictPolicy()

// CleanCaption strips markup, collapses whitespace and truncates to
// maxLength runes. The result is plain text; HTML output must escape it.
func CleanCaption(caption string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultCaptionMaxLength
	}
	text := html.UnescapeString(captionPolicy.Sanitize(caption))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxLength]))
}
