package effects

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// matrix is a 3x3 color matrix applied to unpremultiplied RGB in [0,1].
type matrix [9]float64

// step is one filter primitive. Each CSS filter function clamps its output,
// so steps cannot be folded into a single matrix.
type step struct {
	css   string
	apply func(r, g, b float64) (float64, float64, float64)
}

// steps returns the non-identity primitives in the order CSS evaluates a
// filter list: brightness, contrast, saturate, sepia, grayscale.
func (f FilterSpec) steps() []step {
	f = f.normalized()
	var out []step
	if f.Brightness != 1 {
		k := math.Max(0, f.Brightness)
		out = append(out, step{
			css: "brightness(" + formatAmount(k) + ")",
			apply: func(r, g, b float64) (float64, float64, float64) {
				return r * k, g * k, b * k
			},
		})
	}
	if f.Contrast != 1 {
		k := math.Max(0, f.Contrast)
		c := 0.5 - 0.5*k
		out = append(out, step{
			css: "contrast(" + formatAmount(k) + ")",
			apply: func(r, g, b float64) (float64, float64, float64) {
				return r*k + c, g*k + c, b*k + c
			},
		})
	}
	if f.Saturation != 1 {
		s := math.Max(0, f.Saturation)
		m := matrix{
			0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s,
			0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s,
			0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s,
		}
		out = append(out, step{css: "saturate(" + formatAmount(s) + ")", apply: m.apply})
	}
	if f.Sepia != 0 {
		a := clamp01(f.Sepia)
		g := 1 - a
		m := matrix{
			0.393 + 0.607*g, 0.769 - 0.769*g, 0.189 - 0.189*g,
			0.349 - 0.349*g, 0.686 + 0.314*g, 0.168 - 0.168*g,
			0.272 - 0.272*g, 0.534 - 0.534*g, 0.131 + 0.869*g,
		}
		out = append(out, step{css: "sepia(" + formatAmount(a) + ")", apply: m.apply})
	}
	if f.Grayscale != 0 {
		a := clamp01(f.Grayscale)
		g := 1 - a
		m := matrix{
			0.2126 + 0.7874*g, 0.7152 - 0.7152*g, 0.0722 - 0.0722*g,
			0.2126 - 0.2126*g, 0.7152 + 0.2848*g, 0.0722 - 0.0722*g,
			0.2126 - 0.2126*g, 0.7152 - 0.7152*g, 0.0722 + 0.9278*g,
		}
		out = append(out, step{css: "grayscale(" + formatAmount(a) + ")", apply: m.apply})
	}
	return out
}

func (m matrix) apply(r, g, b float64) (float64, float64, float64) {
	return m[0]*r + m[1]*g + m[2]*b,
		m[3]*r + m[4]*g + m[5]*b,
		m[6]*r + m[7]*g + m[8]*b
}

// CSS renders the filter as a CSS filter property value, "none" for identity.
func (f FilterSpec) CSS() string {
	steps := f.steps()
	if len(steps) == 0 {
		return "none"
	}
	parts := make([]string, len(steps))
	for i, s := range steps {
		parts[i] = s.css
	}
	return strings.Join(parts, " ")
}

// Apply returns a filtered copy of img. Identity filters return img unchanged.
func (f FilterSpec) Apply(img image.Image) image.Image {
	steps := f.steps()
	if len(steps) == 0 {
		return img
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return run(steps, c)
	})
}

// Color filters a single color.
func (f FilterSpec) Color(c color.NRGBA) color.NRGBA {
	return run(f.steps(), c)
}

func run(steps []step, c color.NRGBA) color.NRGBA {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	for _, s := range steps {
		r, g, b = s.apply(r, g, b)
		r, g, b = clamp01(r), clamp01(g), clamp01(b)
	}
	return color.NRGBA{R: to8(r), G: to8(g), B: to8(b), A: c.A}
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func to8(v float64) uint8 {
	return uint8(v*255 + 0.5)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
