package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/senthil524/retroframe-v2-sub000/internal/crop"
	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
)

// Editor runs edit sessions against a store. Events for one session are
// applied under that session's lock.
type Editor struct {
	store            SessionStore
	wheelSensitivity float64

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is held in Editor.locks only while some call references it.
type sessionLock struct {
	sync.Mutex
	refs int
}

// PersistFunc stores a confirmed crop state for a photo.
type PersistFunc func(ctx context.Context, photoID string, state crop.State) error

func New(store SessionStore, wheelSensitivity float64) *Editor {
	return &Editor{
		store:            store,
		wheelSensitivity: wheelSensitivity,
		locks:            make(map[string]*sessionLock),
	}
}

// Begin opens a session for p in adjust mode on the given surface.
func (e *Editor) Begin(ctx context.Context, p *photo.Photo, surface geometry.Size) (*Session, error) {
	if !p.Measured() {
		return nil, ErrNotMeasurable
	}
	s := NewSession(uuid.NewString(), p.ID, p.Intrinsic(), e.wheelSensitivity)
	if err := s.Enter(p.CropState, surface); err != nil {
		return nil, err
	}
	if err := e.store.Put(ctx, s); err != nil {
		return nil, err
	}
	slog.Info("Editor: session started", "session", s.ID, "photo", p.ID)
	return s, nil
}

// Get returns the stored session.
func (e *Editor) Get(ctx context.Context, id string) (*Session, error) {
	return e.store.Get(ctx, id)
}

// Dispatch applies events in order. The first failing event stops the batch;
// events before it are kept.
func (e *Editor) Dispatch(ctx context.Context, id string, events []Event) (*Session, error) {
	unlock := e.lock(id)
	defer unlock()

	s, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var applyErr error
	for i, ev := range events {
		if err := s.Apply(ev); err != nil {
			applyErr = fmt.Errorf("event %d (%s): %w", i, ev.Type, err)
			break
		}
	}
	if err := e.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, applyErr
}

// Confirm normalizes the session state and hands it to persist. The session
// is removed only once persist succeeds, so a failed write can be retried.
func (e *Editor) Confirm(ctx context.Context, id string, persist PersistFunc) (*Session, crop.State, error) {
	unlock := e.lock(id)
	defer unlock()

	s, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, crop.State{}, err
	}
	st, err := s.Confirm()
	if err != nil {
		return s, crop.State{}, err
	}
	if persist != nil {
		if err := persist(ctx, s.PhotoID, st); err != nil {
			return nil, crop.State{}, err
		}
	}
	e.finish(ctx, s)
	slog.Info("Editor: session confirmed", "session", id, "photo", s.PhotoID, "crop", st.String())
	return s, st, nil
}

// Cancel ends the session without producing a new state.
func (e *Editor) Cancel(ctx context.Context, id string) (*Session, error) {
	unlock := e.lock(id)
	defer unlock()

	s, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.Cancel(); err != nil {
		return s, err
	}
	e.finish(ctx, s)
	slog.Info("Editor: session cancelled", "session", id, "photo", s.PhotoID)
	return s, nil
}

func (e *Editor) finish(ctx context.Context, s *Session) {
	if err := e.store.Delete(ctx, s.ID); err != nil {
		slog.Warn("Editor: failed to delete finished session", "session", s.ID, "error", err)
	}
}

func (e *Editor) lock(id string) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sessionLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		e.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}
}
