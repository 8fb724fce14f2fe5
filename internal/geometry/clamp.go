package geometry

import "math"

const (
	// MinZoom is the smallest zoom: the cover fit itself.
	MinZoom = 1.0
	// MaxZoom is the largest zoom the editor allows.
	MaxZoom = 5.0
)

// ClampZoom bounds zoom to [MinZoom, MaxZoom]. NaN maps to MinZoom.
func ClampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return MinZoom
	}
	return math.Min(MaxZoom, math.Max(MinZoom, zoom))
}

// MaxPan returns the largest legal offset magnitude per axis for a fit scaled
// by zoom inside surface. At zoom 1 it is half the overflow of the cover fit.
func MaxPan(surface, fit Size, zoom float64) Point {
	return Point{
		X: math.Max(0, (fit.Width*zoom-surface.Width)/2),
		Y: math.Max(0, (fit.Height*zoom-surface.Height)/2),
	}
}

// Clamp returns the nearest legal zoom and pixel offset: zoom within
// [MinZoom, MaxZoom] and an offset that never lets the image under-fill the
// surface.
func Clamp(surface, fit Size, zoom float64, offset Point) (float64, Point) {
	z := ClampZoom(zoom)
	pan := MaxPan(surface, fit, z)
	return z, Point{
		X: clampAxis(offset.X, pan.X),
		Y: clampAxis(offset.Y, pan.Y),
	}
}

func clampAxis(v, limit float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(limit, math.Max(-limit, v))
}
