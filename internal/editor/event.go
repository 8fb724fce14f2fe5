package editor

import (
	"fmt"

	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
)

// EventType names a gesture event sent by the client.
type EventType string

const (
	PointerDownEvent EventType = "pointerdown"
	PointerMoveEvent EventType = "pointermove"
	PointerUpEvent   EventType = "pointerup"
	WheelEvent       EventType = "wheel"
	ResizeEvent      EventType = "resize"
)

// Event is one client gesture event. Fields not used by Type are ignored.
type Event struct {
	Type    EventType `json:"type" validate:"required,oneof=pointerdown pointermove pointerup wheel resize"`
	Pointer int       `json:"pointer"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	DeltaY  float64   `json:"deltaY"`
	Width   float64   `json:"width"`
	Height  float64   `json:"height"`
}

// Apply dispatches e to the session.
func (s *Session) Apply(e Event) error {
	switch e.Type {
	case PointerDownEvent:
		return s.PointerDown(e.Pointer, e.X, e.Y)
	case PointerMoveEvent:
		return s.PointerMove(e.Pointer, e.X, e.Y)
	case PointerUpEvent:
		return s.PointerUp(e.Pointer)
	case WheelEvent:
		return s.Wheel(e.DeltaY)
	case ResizeEvent:
		return s.Resize(geometry.Size{Width: e.Width, Height: e.Height})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
}
