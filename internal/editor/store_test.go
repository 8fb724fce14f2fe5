package editor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/senthil524/retroframe-v2-sub000/internal/crop"
	"github.com/senthil524/retroframe-v2-sub000/internal/geometry"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestStores_PutGetDelete(t *testing.T) {
	redisStore, _ := newRedisStore(t, time.Minute)
	stores := map[string]SessionStore{
		"memory": NewMemoryStore(time.Minute),
		"redis":  redisStore,
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := adjusting(t, crop.State{Zoom: 2, Offset: crop.Offset{X: 0.1, Y: 0}})
			require.NoError(t, s.PointerDown(3, 5, 6))
			require.NoError(t, store.Put(ctx, s))

			got, err := store.Get(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, s, got)

			// Stored copies are independent of the caller's session.
			s.Zoom = 4
			got, err = store.Get(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, 2.0, got.Zoom)

			require.NoError(t, store.Delete(ctx, s.ID))
			_, err = store.Get(ctx, s.ID)
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestRedisStore_Expires(t *testing.T) {
	store, mr := newRedisStore(t, 10*time.Minute)
	ctx := context.Background()
	s := adjusting(t, crop.Identity())
	require.NoError(t, store.Put(ctx, s))

	mr.FastForward(11 * time.Minute)
	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_Expires(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	s := adjusting(t, crop.Identity())
	require.NoError(t, store.Put(ctx, s))

	now = now.Add(30 * time.Second)
	_, err := store.Get(ctx, s.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNewSessionStore(t *testing.T) {
	s, err := NewSessionStore("memory", "", time.Minute)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewSessionStore("redis", "", time.Minute)
	assert.Error(t, err)

	_, err = NewSessionStore("etcd", "", time.Minute)
	assert.Error(t, err)
}

func TestEditor_ConfirmFlow(t *testing.T) {
	ctx := context.Background()
	store, _ := newRedisStore(t, time.Minute)
	ed := New(store, 0)
	p := photo.New("p1", "o1", "blob://k", 4000, 3000)

	s, err := ed.Begin(ctx, p, square)
	require.NoError(t, err)

	s, err = ed.Dispatch(ctx, s.ID, []Event{
		{Type: PointerDownEvent, Pointer: 1, X: 0, Y: 0},
		{Type: PointerMoveEvent, Pointer: 1, X: -120, Y: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, -120.0, s.Offset.X)

	done, st, err := ed.Confirm(ctx, s.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, done.Mode)
	assert.InDelta(t, -0.1, st.Offset.X, 1e-12)

	_, err = ed.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEditor_DispatchStopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	ed := New(NewMemoryStore(time.Minute), 0)
	p := photo.New("p1", "o1", "blob://k", 4000, 3000)
	s, err := ed.Begin(ctx, p, square)
	require.NoError(t, err)

	s, err = ed.Dispatch(ctx, s.ID, []Event{
		{Type: WheelEvent, DeltaY: -1000},
		{Type: "bogus"},
		{Type: WheelEvent, DeltaY: -1000},
	})
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.InDelta(t, 2.0, s.Zoom, 1e-9)

	stored, err := ed.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, stored.Zoom, 1e-9)
}

func TestEditor_CancelAndMissingSession(t *testing.T) {
	ctx := context.Background()
	ed := New(NewMemoryStore(time.Minute), 0)
	p := photo.New("p1", "o1", "blob://k", 4000, 3000)
	p.CropState = crop.State{Zoom: 3, Offset: crop.Offset{}}

	s, err := ed.Begin(ctx, p, square)
	require.NoError(t, err)
	_, err = ed.Dispatch(ctx, s.ID, []Event{{Type: WheelEvent, DeltaY: 1000}})
	require.NoError(t, err)

	cancelled, err := ed.Cancel(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Cancelled, cancelled.Mode)
	assert.Equal(t, 3.0, cancelled.Zoom)

	_, _, err = ed.Confirm(ctx, s.ID, nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEditor_BeginPendingPhoto(t *testing.T) {
	ed := New(NewMemoryStore(time.Minute), 0)
	p := photo.New("p1", "o1", "blob://k", 0, 0)
	_, err := ed.Begin(context.Background(), p, geometry.Size{Width: 300, Height: 300})
	assert.ErrorIs(t, err, ErrNotMeasurable)
}

func TestMemoryStore_SweepsAbandonedSessions(t *testing.T) {
	store := NewMemoryStore(30 * time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	ctx := context.Background()
	ed := New(store, 0)
	p := photo.New("p1", "o1", "blob://k", 4000, 3000)
	for i := 0; i < 50; i++ {
		_, err := ed.Begin(ctx, p, square)
		require.NoError(t, err)
	}
	assert.Len(t, store.entries, 50)

	now = now.Add(24 * time.Hour)
	fresh, err := ed.Begin(ctx, p, square)
	require.NoError(t, err)

	assert.Len(t, store.entries, 1)
	_, ok := store.entries[fresh.ID]
	assert.True(t, ok)
}

func TestEditor_LocksReleased(t *testing.T) {
	ctx := context.Background()
	ed := New(NewMemoryStore(time.Minute), 0)

	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("missing-%d", i)
		_, err := ed.Dispatch(ctx, id, []Event{{Type: WheelEvent, DeltaY: 1}})
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, _, err = ed.Confirm(ctx, id, nil)
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = ed.Cancel(ctx, id)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}

	p := photo.New("p1", "o1", "blob://k", 4000, 3000)
	s, err := ed.Begin(ctx, p, square)
	require.NoError(t, err)
	_, err = ed.Dispatch(ctx, s.ID, []Event{{Type: WheelEvent, DeltaY: -100}})
	require.NoError(t, err)

	assert.Empty(t, ed.locks)
}

func TestEditor_ConfirmKeepsSessionWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	ed := New(NewMemoryStore(time.Minute), 0)
	p := photo.New("p1", "o1", "blob://k", 4000, 3000)
	s, err := ed.Begin(ctx, p, square)
	require.NoError(t, err)
	_, err = ed.Dispatch(ctx, s.ID, []Event{{Type: WheelEvent, DeltaY: -1000}})
	require.NoError(t, err)

	writeErr := errors.New("disk full")
	_, _, err = ed.Confirm(ctx, s.ID, func(context.Context, string, crop.State) error {
		return writeErr
	})
	assert.ErrorIs(t, err, writeErr)

	stored, err := ed.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Adjusting, stored.Mode)

	var persisted crop.State
	var persistedFor string
	_, st, err := ed.Confirm(ctx, s.ID, func(_ context.Context, photoID string, state crop.State) error {
		persistedFor, persisted = photoID, state
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", persistedFor)
	assert.Equal(t, st, persisted)
	assert.InDelta(t, 2.0, st.Zoom, 1e-9)

	_, err = ed.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, ed.locks)
}
