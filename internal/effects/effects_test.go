package effects

import (
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_AllPresets(t *testing.T) {
	names := Names()
	require.Len(t, names, 5)
	for _, name := range names {
		filter, err := Lookup(name)
		require.NoError(t, err, "preset %s", name)
		assert.True(t, Valid(name))
		if name == Original {
			assert.True(t, filter.IsIdentity())
		} else {
			assert.False(t, filter.IsIdentity(), "preset %s must change pixels", name)
		}
	}
}

func TestLookup_Unknown(t *testing.T) {
	filter, err := Lookup("polaroid")
	assert.True(t, errors.Is(err, ErrUnknownEffect))
	assert.True(t, filter.IsIdentity())
	assert.True(t, Resolve("polaroid").IsIdentity())
}

func TestFilterSpec_ZeroValueIsIdentity(t *testing.T) {
	var zero FilterSpec
	assert.True(t, zero.IsIdentity())
	assert.Equal(t, "none", zero.CSS())

	c := color.NRGBA{R: 200, G: 120, B: 40, A: 255}
	assert.Equal(t, c, zero.Color(c))

	var partial FilterSpec
	require.NoError(t, json.Unmarshal([]byte(`{"sepia": 0.5}`), &partial))
	assert.Equal(t, "sepia(0.5)", partial.CSS())
}

func TestCSS(t *testing.T) {
	tests := []struct {
		name Name
		want string
	}{
		{Original, "none"},
		{Noir, "contrast(1.1) grayscale(1)"},
		{Sepia, "brightness(1.05) sepia(0.8)"},
		{Vivid, "contrast(1.1) saturate(1.4)"},
		{Retro, "brightness(1.05) contrast(0.9) saturate(0.85) sepia(0.3)"},
	}
	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.name).CSS())
		})
	}
}

func TestApply_IdentityReturnsSameImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	assert.Same(t, img, Identity().Apply(img).(*image.RGBA))
}

func TestApply_MatchesColor(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	colors := []color.NRGBA{{200, 40, 90, 255}, {10, 250, 128, 255}, {128, 128, 128, 100}}
	for i, c := range colors {
		src.SetNRGBA(i, 0, c)
	}

	for _, name := range Names() {
		filter := Resolve(name)
		out := filter.Apply(src)
		for i, c := range colors {
			got := color.NRGBAModel.Convert(out.At(i, 0)).(color.NRGBA)
			assert.Equal(t, filter.Color(c), got, "preset %s pixel %d", name, i)
		}
	}
}

func TestNoir_IsGray(t *testing.T) {
	got := Resolve(Noir).Color(color.NRGBA{R: 220, G: 30, B: 60, A: 255})
	assert.Equal(t, got.R, got.G)
	assert.Equal(t, got.G, got.B)
}

func TestBrightness_Clamps(t *testing.T) {
	got := FilterSpec{Brightness: 3, Contrast: 1, Saturation: 1}.Color(color.NRGBA{R: 200, G: 100, B: 0, A: 255})
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 0, A: 255}, got)
}
