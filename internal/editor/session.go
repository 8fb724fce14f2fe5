// Package editor implements the crop adjust mode: a per-photo gesture state
// machine working in the pixel space of the editing surface. Only Confirm
// produces a new persisted crop state.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/senthil524/retroframe-v2-sub000/internal/crop"
	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
)

// DefaultWheelSensitivity converts wheel delta units to zoom steps.
const DefaultWheelSensitivity = 0.001

var (
	ErrNotAdjusting    = errors.New("editor is not in adjust mode")
	ErrNotMeasurable   = errors.New("photo has no intrinsic dimensions yet")
	ErrInvalidSurface  = errors.New("editing surface must have positive dimensions")
	ErrSessionNotFound = errors.New("edit session not found")
	ErrUnknownEvent    = errors.New("unknown editor event")
)

// Mode is the lifecycle state of a session.
type Mode string

const (
	Idle      Mode = "idle"
	Adjusting Mode = "adjusting"
	Confirmed Mode = "confirmed"
	Cancelled Mode = "cancelled"
)

// Gesture is the active pointer interpretation.
type Gesture string

const (
	GestureNone  Gesture = ""
	GestureDrag  Gesture = "drag"
	GesturePinch Gesture = "pinch"
)

// Pointer is one active touch or mouse pointer.
type Pointer struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func (p Pointer) point() geometry.Point { return geometry.Point{X: p.X, Y: p.Y} }

// Session holds the working state of one adjust transaction. It is plain
// data so stores can serialize it; callers serialize access.
type Session struct {
	ID               string         `json:"id"`
	PhotoID          string         `json:"photoId"`
	Mode             Mode           `json:"mode"`
	Intrinsic        geometry.Size  `json:"intrinsic"`
	Surface          geometry.Size  `json:"surface"`
	Fit              geometry.Size  `json:"fit"`
	Snapshot         crop.State     `json:"snapshot"`
	Zoom             float64        `json:"zoom"`
	Offset           geometry.Point `json:"offset"`
	WheelSensitivity float64        `json:"wheelSensitivity"`

	Gesture         Gesture        `json:"gesture,omitempty"`
	Pointers        []Pointer      `json:"pointers,omitempty"`
	DragPointer     int            `json:"dragPointer"`
	DragStart       geometry.Point `json:"dragStart"`
	DragStartOffset geometry.Point `json:"dragStartOffset"`
	PinchDistance   float64        `json:"pinchDistance"`
	PinchStartZoom  float64        `json:"pinchStartZoom"`
}

// NewSession returns an idle session for a photo.
func NewSession(id, photoID string, intrinsic geometry.Size, wheelSensitivity float64) *Session {
	if wheelSensitivity <= 0 || math.IsNaN(wheelSensitivity) {
		wheelSensitivity = DefaultWheelSensitivity
	}
	return &Session{
		ID:               id,
		PhotoID:          photoID,
		Mode:             Idle,
		Intrinsic:        intrinsic,
		Zoom:             geometry.MinZoom,
		WheelSensitivity: wheelSensitivity,
	}
}

// Enter snapshots the persisted state and denormalizes it against the
// editing surface.
func (s *Session) Enter(persisted crop.State, surface geometry.Size) error {
	if s.Mode == Adjusting {
		return nil
	}
	if !s.Intrinsic.Valid() {
		return ErrNotMeasurable
	}
	if !surface.Valid() {
		return fmt.Errorf("%w: %vx%v", ErrInvalidSurface, surface.Width, surface.Height)
	}

	s.Snapshot = persisted
	s.Surface = surface
	px := persisted.Pixels(surface, s.Intrinsic)
	s.Fit = px.Fit
	s.Zoom = px.Zoom
	s.Offset = px.Offset
	s.resetGesture()
	s.Mode = Adjusting

	slog.Debug("Editor: entered adjust mode",
		"session", s.ID,
		"photo", s.PhotoID,
		"fit_width", s.Fit.Width,
		"fit_height", s.Fit.Height,
		"zoom", s.Zoom)
	return nil
}

// PointerDown registers a pointer. One pointer drags; a second pointer
// replaces the drag with a pinch. Further pointers are ignored.
func (s *Session) PointerDown(id int, x, y float64) error {
	if s.Mode != Adjusting {
		return ErrNotAdjusting
	}
	if s.pointerIndex(id) >= 0 || len(s.Pointers) >= 2 {
		return nil
	}
	s.Pointers = append(s.Pointers, Pointer{ID: id, X: x, Y: y})
	if len(s.Pointers) == 1 {
		s.startDrag(s.Pointers[0])
	} else {
		s.startPinch()
	}
	return nil
}

// PointerMove updates a pointer and applies the active gesture.
func (s *Session) PointerMove(id int, x, y float64) error {
	if s.Mode != Adjusting {
		return ErrNotAdjusting
	}
	i := s.pointerIndex(id)
	if i < 0 {
		return nil
	}
	s.Pointers[i].X, s.Pointers[i].Y = x, y

	switch s.Gesture {
	case GestureDrag:
		if id != s.DragPointer {
			return nil
		}
		s.Offset = geometry.Point{
			X: s.DragStartOffset.X + (x - s.DragStart.X),
			Y: s.DragStartOffset.Y + (y - s.DragStart.Y),
		}
		s.clamp()
	case GesturePinch:
		if s.PinchDistance <= 0 {
			return nil
		}
		s.Zoom = s.PinchStartZoom * (s.distance() / s.PinchDistance)
		s.clamp()
	}
	return nil
}

// PointerUp removes a pointer. When a pinch loses a finger, the remaining
// finger starts a fresh drag from the current state.
func (s *Session) PointerUp(id int) error {
	if s.Mode != Adjusting {
		return ErrNotAdjusting
	}
	i := s.pointerIndex(id)
	if i < 0 {
		return nil
	}
	s.Pointers = append(s.Pointers[:i], s.Pointers[i+1:]...)
	if len(s.Pointers) == 1 {
		s.startDrag(s.Pointers[0])
	} else if len(s.Pointers) == 0 {
		s.resetGesture()
	}
	return nil
}

// Wheel zooms by delta.
func (s *Session) Wheel(delta float64) error {
	if s.Mode != Adjusting {
		return ErrNotAdjusting
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil
	}
	s.Zoom -= delta * s.WheelSensitivity
	s.clamp()
	return nil
}

// Resize recomputes the fit for a new surface and re-clamps the in-progress
// pixel offset.
func (s *Session) Resize(surface geometry.Size) error {
	if s.Mode != Adjusting {
		return ErrNotAdjusting
	}
	if !surface.Valid() {
		return fmt.Errorf("%w: %vx%v", ErrInvalidSurface, surface.Width, surface.Height)
	}
	s.Surface = surface
	s.Fit = geometry.Fit(surface, s.Intrinsic)
	s.clamp()
	if s.Gesture == GestureDrag {
		if i := s.pointerIndex(s.DragPointer); i >= 0 {
			s.startDrag(s.Pointers[i])
		}
	}
	return nil
}

// Confirm normalizes the working state against the current fit and ends the
// session. The returned state is what gets persisted.
func (s *Session) Confirm() (crop.State, error) {
	if s.Mode != Adjusting {
		return crop.State{}, ErrNotAdjusting
	}
	s.clamp()
	st := crop.Normalize(s.Zoom, s.Offset, s.Fit)
	s.resetGesture()
	s.Mode = Confirmed
	return st, nil
}

// Cancel restores the snapshot and ends the session.
func (s *Session) Cancel() (crop.State, error) {
	if s.Mode != Adjusting {
		return crop.State{}, ErrNotAdjusting
	}
	px := s.Snapshot.Pixels(s.Surface, s.Intrinsic)
	s.Zoom, s.Offset, s.Fit = px.Zoom, px.Offset, px.Fit
	s.resetGesture()
	s.Mode = Cancelled
	return s.Snapshot, nil
}

// Crop returns the working state in normalized form.
func (s *Session) Crop() crop.State {
	return crop.Normalize(s.Zoom, s.Offset, s.Fit)
}

func (s *Session) clamp() {
	s.Zoom, s.Offset = geometry.Clamp(s.Surface, s.Fit, s.Zoom, s.Offset)
}

func (s *Session) startDrag(p Pointer) {
	s.Gesture = GestureDrag
	s.DragPointer = p.ID
	s.DragStart = p.point()
	s.DragStartOffset = s.Offset
}

func (s *Session) startPinch() {
	s.Gesture = GesturePinch
	s.PinchDistance = s.distance()
	s.PinchStartZoom = s.Zoom
}

func (s *Session) resetGesture() {
	s.Gesture = GestureNone
	s.Pointers = nil
	s.DragPointer = 0
	s.DragStart = geometry.Point{}
	s.DragStartOffset = geometry.Point{}
	s.PinchDistance = 0
	s.PinchStartZoom = 0
}

func (s *Session) pointerIndex(id int) int {
	for i, p := range s.Pointers {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) distance() float64 {
	if len(s.Pointers) < 2 {
		return 0
	}
	a, b := s.Pointers[0], s.Pointers[1]
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}
