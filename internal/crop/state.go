// Package crop holds the persisted, resolution-independent crop model.
//
// A State stores zoom plus an offset expressed as a fraction of the cover-fit
// dimensions of whatever surface it was normalized against. Any renderer turns
// it back into pixels against its own surface with Pixels, so a 120px
// thumbnail, a 400px editor and a 900px print canvas all show the same window.
package crop

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
)

// Offset is the normalized pan, a fraction of fit width/height.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is the durable crop contract:
//
//	{"zoom": <float 1..5>, "offset": {"x": <float>, "y": <float>}}
type State struct {
	Zoom   float64 `json:"zoom"`
	Offset Offset  `json:"offset"`
}

// Identity is the crop every photo starts with: cover fit, no pan.
func Identity() State {
	return State{Zoom: geometry.MinZoom}
}

// Pixel is a crop state denormalized against one surface.
type Pixel struct {
	Zoom   float64
	Offset geometry.Point
	Fit    geometry.Size
}

// Pixels resolves the state against a surface: fit is computed fresh,
// offset*fit gives the pixel pan, and the result is re-clamped because
// persisted state is untrusted input. A zero Fit means nothing can be drawn.
func (s State) Pixels(surface, intrinsic geometry.Size) Pixel {
	fit := geometry.Fit(surface, intrinsic)
	if fit.IsZero() {
		return Pixel{Zoom: geometry.ClampZoom(s.Zoom)}
	}
	raw := geometry.Point{
		X: s.Offset.X * fit.Width,
		Y: s.Offset.Y * fit.Height,
	}
	zoom, offset := geometry.Clamp(surface, fit, s.Zoom, raw)
	return Pixel{Zoom: zoom, Offset: offset, Fit: fit}
}

// Normalize converts a pixel-space zoom and offset, measured against fit,
// into the persisted form. The caller is expected to have clamped already;
// a zero fit yields a zero offset.
func Normalize(zoom float64, offset geometry.Point, fit geometry.Size) State {
	st := State{Zoom: geometry.ClampZoom(zoom)}
	if fit.Valid() {
		st.Offset = Offset{
			X: offset.X / fit.Width,
			Y: offset.Y / fit.Height,
		}
	}
	return st
}

// Sanitize returns a state safe to persist: zoom in range, finite offsets
// bounded by the largest pan any surface could allow at that zoom. Normalized
// max pan is zoom/2 - surface/(2*fit), so no legal offset reaches zoom/2.
func (s State) Sanitize() State {
	zoom := geometry.ClampZoom(s.Zoom)
	limit := zoom / 2
	return State{
		Zoom: zoom,
		Offset: Offset{
			X: bound(s.Offset.X, limit),
			Y: bound(s.Offset.Y, limit),
		},
	}
}

// Equal compares two states within tolerance.
func (s State) Equal(o State, tolerance float64) bool {
	return math.Abs(s.Zoom-o.Zoom) <= tolerance &&
		math.Abs(s.Offset.X-o.Offset.X) <= tolerance &&
		math.Abs(s.Offset.Y-o.Offset.Y) <= tolerance
}

// String renders the persisted JSON form.
func (s State) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("{zoom:%g offset:{%g %g}}", s.Zoom, s.Offset.X, s.Offset.Y)
	}
	return string(b)
}

// Parse decodes the persisted JSON form. An empty document yields Identity.
// The decoded state is sanitized, never trusted as is.
func Parse(data []byte) (State, error) {
	if len(data) == 0 {
		return Identity(), nil
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return Identity(), fmt.Errorf("failed to decode crop state: %w", err)
	}
	return st.Sanitize(), nil
}

func bound(v, limit float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Min(limit, math.Max(-limit, v))
}
