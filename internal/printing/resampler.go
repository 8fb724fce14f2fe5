package printing

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/bamiaux/rez"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DefaultResampler is used when no resampler is configured.
const DefaultResampler = "catmullrom"

// ResamplerFactory builds a transformer for drawing photos.
type ResamplerFactory func() draw.Transformer

// ResamplerRegistry maps resampler names to factories.
type ResamplerRegistry struct {
	mu        sync.RWMutex
	factories map[string]ResamplerFactory
}

func NewResamplerRegistry() *ResamplerRegistry {
	return &ResamplerRegistry{factories: make(map[string]ResamplerFactory)}
}

// Register adds a factory. Names must be unique and non-empty.
func (r *ResamplerRegistry) Register(name string, factory ResamplerFactory) error {
	if name == "" {
		return fmt.Errorf("resampler name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("resampler factory cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("resampler %s is already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// Create returns the transformer registered under name.
func (r *ResamplerRegistry) Create(name string) (draw.Transformer, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown resampler: %s", name)
	}
	return factory(), nil
}

func (r *ResamplerRegistry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *ResamplerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultResamplers holds the built-in resamplers.
var DefaultResamplers = func() *ResamplerRegistry {
	r := NewResamplerRegistry()
	_ = r.Register("catmullrom", func() draw.Transformer { return draw.CatmullRom })
	_ = r.Register("bilinear", func() draw.Transformer { return draw.BiLinear })
	_ = r.Register("nearest", func() draw.Transformer { return draw.NearestNeighbor })
	_ = r.Register("rez", func() draw.Transformer { return rezTransformer{filter: rez.NewBicubicFilter()} })
	return r
}()

// rezTransformer adapts a rez filter to draw.Transformer. It supports
// scale-and-translate matrices only; anything else, or a rez failure, falls
// back to CatmullRom.
type rezTransformer struct {
	filter rez.Filter
}

func (t rezTransformer) Transform(dst draw.Image, s2d f64.Aff3, src image.Image, sr image.Rectangle, op draw.Op, opts *draw.Options) {
	if opts != nil || s2d[1] != 0 || s2d[3] != 0 || s2d[0] <= 0 || s2d[4] <= 0 {
		draw.CatmullRom.Transform(dst, s2d, src, sr, op, opts)
		return
	}

	// Only the part of src that lands on dst is resampled.
	db := dst.Bounds()
	r1 := image.Rect(
		int(math.Floor((float64(db.Min.X)-s2d[2])/s2d[0]))-2,
		int(math.Floor((float64(db.Min.Y)-s2d[5])/s2d[4]))-2,
		int(math.Ceil((float64(db.Max.X)-s2d[2])/s2d[0]))+2,
		int(math.Ceil((float64(db.Max.Y)-s2d[5])/s2d[4]))+2,
	).Intersect(sr.Canon())
	if r1.Empty() {
		return
	}
	w := int(float64(r1.Dx())*s2d[0] + 0.5)
	h := int(float64(r1.Dy())*s2d[4] + 0.5)
	if w <= 0 || h <= 0 {
		return
	}

	// rez converts between images of the same layout, so crop into RGBA first.
	in := image.NewRGBA(image.Rect(0, 0, r1.Dx(), r1.Dy()))
	draw.Draw(in, in.Bounds(), src, r1.Min, draw.Src)
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := rez.Convert(out, in, t.filter); err != nil {
		slog.Warn("Printing: rez resampling failed, falling back to catmullrom", "error", err)
		draw.CatmullRom.Transform(dst, s2d, src, sr, op, opts)
		return
	}

	x := int(math.Round(s2d[2] + float64(r1.Min.X)*s2d[0]))
	y := int(math.Round(s2d[5] + float64(r1.Min.Y)*s2d[4]))
	draw.Draw(dst, image.Rect(x, y, x+w, y+h), out, image.Point{}, op)
}
