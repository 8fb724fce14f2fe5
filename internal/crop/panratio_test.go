package crop

import (
	"fmt"
	"math"
	"testing"

	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
)

// panRatioOffset reconstructs the print offset the way the admin export used
// to: rebuild a square on-screen container, express the pan as a fraction of
// that container's maximum pan, then reapply the fraction to the print
// surface's maximum pan.
func panRatioOffset(st State, container float64, surface, intrinsic geometry.Size) geometry.Point {
	screen := geometry.Size{Width: container, Height: container}
	screenFit := geometry.Fit(screen, intrinsic)
	zoom := geometry.ClampZoom(st.Zoom)
	screenPan := geometry.MaxPan(screen, screenFit, zoom)
	printPan := geometry.MaxPan(surface, geometry.Fit(surface, intrinsic), zoom)

	ratio := func(offset, pan float64) float64 {
		if pan == 0 {
			return 0
		}
		return math.Max(-1, math.Min(1, offset/pan))
	}
	return geometry.Point{
		X: ratio(st.Offset.X*screenFit.Width, screenPan.X) * printPan.X,
		Y: ratio(st.Offset.Y*screenFit.Height, screenPan.Y) * printPan.Y,
	}
}

// Both print reconstructions must agree on square print windows, which is the
// only shape the product prints. On other aspect ratios they drift, which is
// why every renderer uses State.Pixels.
func TestPanRatioAgreesWithNormalizedOffsetOnSquareSurfaces(t *testing.T) {
	intrinsics := []geometry.Size{
		geometry.NewSize(4000, 3000),
		geometry.NewSize(3000, 4000),
		geometry.NewSize(6000, 2000),
		geometry.NewSize(1200, 1200),
	}
	states := []State{
		{Zoom: 1, Offset: Offset{X: 0.1}},
		{Zoom: 1.5, Offset: Offset{X: -0.2, Y: 0.15}},
		{Zoom: 3, Offset: Offset{X: 0.6, Y: -0.9}},
		{Zoom: 5, Offset: Offset{X: -2.2, Y: 2.2}},
	}
	prints := []float64{300, 900, 1500}

	for _, intrinsic := range intrinsics {
		for _, st := range states {
			for _, side := range prints {
				name := fmt.Sprintf("%vx%v/%s/%v", intrinsic.Width, intrinsic.Height, st, side)
				t.Run(name, func(t *testing.T) {
					surface := geometry.Size{Width: side, Height: side}
					container := 400.0

					// The normalized state as persisted by the editor for that container.
					editor := geometry.Size{Width: container, Height: container}
					persisted := Normalize(clampedAt(st, editor, intrinsic))

					want := persisted.Pixels(surface, intrinsic).Offset
					got := panRatioOffset(persisted, container, surface, intrinsic)
					if math.Abs(want.X-got.X) > 1e-6 || math.Abs(want.Y-got.Y) > 1e-6 {
						t.Fatalf("pan ratio %v differs from normalized offset %v", got, want)
					}
				})
			}
		}
	}
}

func TestPanRatioDriftsOnNonSquareSurfaces(t *testing.T) {
	intrinsic := geometry.NewSize(4000, 3000)
	editor := geometry.Size{Width: 400, Height: 400}
	persisted := Normalize(clampedAt(State{Zoom: 2, Offset: Offset{X: 0.2, Y: 0.1}}, editor, intrinsic))

	drifted := 0
	for _, surface := range []geometry.Size{geometry.NewSize(900, 600), geometry.NewSize(600, 900), geometry.NewSize(1200, 300)} {
		want := persisted.Pixels(surface, intrinsic).Offset
		got := panRatioOffset(persisted, 400, surface, intrinsic)
		if math.Abs(want.X-got.X) > 1e-6 || math.Abs(want.Y-got.Y) > 1e-6 {
			drifted++
		}
		// Whatever the legacy formula produced, the normalized offset stays legal.
		fit := geometry.Fit(surface, intrinsic)
		pan := geometry.MaxPan(surface, fit, persisted.Zoom)
		if math.Abs(want.X) > pan.X+1e-9 || math.Abs(want.Y) > pan.Y+1e-9 {
			t.Fatalf("normalized offset %v exceeds max pan %v on %v", want, pan, surface)
		}
	}
	if drifted == 0 {
		t.Fatal("expected the pan ratio reconstruction to drift on at least one non-square surface")
	}
}

func clampedAt(st State, surface, intrinsic geometry.Size) (float64, geometry.Point, geometry.Size) {
	px := st.Pixels(surface, intrinsic)
	return px.Zoom, px.Offset, px.Fit
}
