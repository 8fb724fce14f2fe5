// Package effects maps the five named photo presets to filter parameters and
// applies them. The same FilterSpec drives the CSS preview filter and the
// raster print filter, so a preset looks the same on screen and on paper.
package effects

import (
	"errors"
	"fmt"
	"sort"
)

// Name identifies a preset.
type Name string

const (
	Original Name = "original"
	Noir     Name = "noir"
	Sepia    Name = "sepia"
	Vivid    Name = "vivid"
	Retro    Name = "retro"
)

// ErrUnknownEffect is returned by Lookup for names outside the preset list.
var ErrUnknownEffect = errors.New("unknown effect")

// FilterSpec holds filter magnitudes with CSS filter semantics: Brightness,
// Contrast and Saturation are multipliers where 1 is identity, Sepia and
// Grayscale are amounts where 0 is identity. A zero multiplier is unset and
// reads as 1, so the zero FilterSpec is the identity filter.
type FilterSpec struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Sepia      float64 `json:"sepia"`
	Grayscale  float64 `json:"grayscale"`
}

// Identity is the no-op filter used by the original preset.
func Identity() FilterSpec {
	return FilterSpec{Brightness: 1, Contrast: 1, Saturation: 1}
}

// IsIdentity reports whether the filter leaves pixels untouched.
func (f FilterSpec) IsIdentity() bool {
	return f.normalized() == Identity()
}

func (f FilterSpec) normalized() FilterSpec {
	if f.Brightness == 0 {
		f.Brightness = 1
	}
	if f.Contrast == 0 {
		f.Contrast = 1
	}
	if f.Saturation == 0 {
		f.Saturation = 1
	}
	return f
}

var presets = map[Name]FilterSpec{
	Original: Identity(),
	Noir:     {Brightness: 1, Contrast: 1.1, Saturation: 1, Grayscale: 1},
	Sepia:    {Brightness: 1.05, Contrast: 1, Saturation: 1, Sepia: 0.8},
	Vivid:    {Brightness: 1, Contrast: 1.1, Saturation: 1.4},
	Retro:    {Brightness: 1.05, Contrast: 0.9, Saturation: 0.85, Sepia: 0.3},
}

// Lookup returns the filter for a preset name.
func Lookup(name Name) (FilterSpec, error) {
	filter, ok := presets[name]
	if !ok {
		return Identity(), fmt.Errorf("%w: %q", ErrUnknownEffect, name)
	}
	return filter, nil
}

// Resolve is Lookup for renderers: unknown names fall back to the identity
// filter instead of failing the render.
func Resolve(name Name) FilterSpec {
	filter, _ := Lookup(name)
	return filter
}

// Valid reports whether name is one of the presets.
func Valid(name Name) bool {
	_, ok := presets[name]
	return ok
}

// Names returns the preset names in stable order.
func Names() []Name {
	names := make([]Name, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
