// Package preview lays out a cropped photo inside a live container. The
// layout is recomputed from the current container size on every call.
package preview

import (
	"fmt"
	"html"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/senthil524/retroframe-v2-sub000/internal/crop"
	"github.com/senthil524/retroframe-v2-sub000/internal/effects"
	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
)

// State gates visibility of the image element.
type State string

const (
	Pending State = "pending"
	Loading State = "loading"
	Error   State = "error"
	Ready   State = "ready"
)

// Input describes one render request.
type Input struct {
	Crop      crop.State
	Intrinsic geometry.Size
	Container geometry.Size
	Filter    effects.FilterSpec
	Loaded    bool
	Failed    bool
}

// Layout positions an element of ImageWidth x ImageHeight at the container
// center, then applies Transform. The container must clip its overflow.
type Layout struct {
	State       State         `json:"state"`
	Visible     bool          `json:"visible"`
	Container   geometry.Size `json:"container"`
	ImageWidth  float64       `json:"imageWidth"`
	ImageHeight float64       `json:"imageHeight"`
	Zoom        float64       `json:"zoom"`
	OffsetX     float64       `json:"offsetX"`
	OffsetY     float64       `json:"offsetY"`
	Transform   string        `json:"transform"`
	Filter      string        `json:"filter"`
}

// Render computes the layout. A photo without intrinsic dimensions or a
// container without a size is pending and draws nothing.
func Render(in Input) Layout {
	l := Layout{
		State:     Pending,
		Container: in.Container,
		Zoom:      geometry.MinZoom,
		Filter:    in.Filter.CSS(),
	}

	px := in.Crop.Pixels(in.Container, in.Intrinsic)
	if px.Fit.IsZero() {
		slog.Debug("Preview: pending measurement",
			"intrinsic_width", in.Intrinsic.Width,
			"intrinsic_height", in.Intrinsic.Height,
			"container_width", in.Container.Width,
			"container_height", in.Container.Height)
		l.Transform = transform(0, 0, geometry.MinZoom)
		return l
	}

	l.ImageWidth = px.Fit.Width
	l.ImageHeight = px.Fit.Height
	l.Zoom = px.Zoom
	l.OffsetX = px.Offset.X
	l.OffsetY = px.Offset.Y
	l.Transform = transform(px.Offset.X, px.Offset.Y, px.Zoom)

	switch {
	case in.Failed:
		l.State = Error
	case !in.Loaded:
		l.State = Loading
	default:
		l.State = Ready
		l.Visible = true
	}
	return l
}

// ContainerStyle is the inline style of the clipping container.
func (l Layout) ContainerStyle() string {
	return fmt.Sprintf("position:relative;overflow:hidden;width:%spx;height:%spx",
		formatPx(l.Container.Width), formatPx(l.Container.Height))
}

// ImageStyle is the inline style of the image element.
func (l Layout) ImageStyle() string {
	var b strings.Builder
	fmt.Fprintf(&b, "position:absolute;left:50%%;top:50%%;width:%spx;height:%spx;max-width:none;transform-origin:center center;transform:%s",
		formatPx(l.ImageWidth), formatPx(l.ImageHeight), l.Transform)
	if l.Filter != "none" && l.Filter != "" {
		b.WriteString(";filter:")
		b.WriteString(l.Filter)
	}
	if !l.Visible {
		b.WriteString(";visibility:hidden")
	}
	return b.String()
}

// HTML renders the container with the image or the placeholder for its
// state. src and alt are escaped.
func (l Layout) HTML(src, alt string) string {
	var inner string
	switch l.State {
	case Pending:
		inner = `<div class="preview-placeholder">Measuring photo…</div>`
	case Error:
		inner = `<div class="preview-placeholder preview-error">Photo unavailable</div>`
	default:
		inner = fmt.Sprintf(`<img src="%s" alt="%s" data-state="%s" draggable="false" style="%s">`,
			html.EscapeString(src), html.EscapeString(alt), l.State, html.EscapeString(l.ImageStyle()))
	}
	return fmt.Sprintf(`<div class="preview" data-state="%s" style="%s">%s</div>`,
		l.State, html.EscapeString(l.ContainerStyle()), inner)
}

// transform keeps translation outside scale so offsets stay in container
// pixels regardless of zoom.
func transform(x, y, zoom float64) string {
	return fmt.Sprintf("translate(-50%%, -50%%) translate(%spx, %spx) scale(%s)",
		formatPx(x), formatPx(y), formatPx(zoom))
}

func formatPx(v float64) string {
	v = math.Round(v*1e4) / 1e4
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
