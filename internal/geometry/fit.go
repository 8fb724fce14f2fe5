package geometry

import "math"

// Size is a width/height pair in pixels. Values are float64 because fit
// results are fractional and must survive round trips without rounding.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Point is a pixel offset or pointer position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewSize builds a Size from integer pixel dimensions.
func NewSize(width, height int) Size {
	return Size{Width: float64(width), Height: float64(height)}
}

// IsZero reports whether the size is the zero-fit result.
func (s Size) IsZero() bool {
	return s.Width == 0 && s.Height == 0
}

// Valid reports whether both dimensions are finite and strictly positive.
func (s Size) Valid() bool {
	return positive(s.Width) && positive(s.Height)
}

// Aspect returns width/height, or 0 for an invalid size.
func (s Size) Aspect() float64 {
	if !s.Valid() {
		return 0
	}
	return s.Width / s.Height
}

// Fit returns the cover dimensions of an image inside a surface: the image is
// scaled uniformly until it fills the surface on both axes, overflow allowed.
// Any non-positive or non-finite input yields the zero size, which callers
// treat as "not yet measurable".
func Fit(surface, image Size) Size {
	if !surface.Valid() || !image.Valid() {
		return Size{}
	}
	scale := CoverScale(surface, image)
	return Size{
		Width:  image.Width * scale,
		Height: image.Height * scale,
	}
}

// CoverScale returns max(surfaceW/imageW, surfaceH/imageH), or 0 when either
// size is invalid.
func CoverScale(surface, image Size) float64 {
	if !surface.Valid() || !image.Valid() {
		return 0
	}
	return math.Max(surface.Width/image.Width, surface.Height/image.Height)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
