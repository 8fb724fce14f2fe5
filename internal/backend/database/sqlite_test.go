package database

import (
	"context"
	"errors"
	"testing"

	"github.com/senthil524/retroframe-v2-sub000/internal/crop"
	"github.com/senthil524/retroframe-v2-sub000/internal/effects"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
)

func newTestDB(t *testing.T) DatabaseService {
	t.Helper()

	ds, err := NewDatabase("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func addPhotos(t *testing.T, ds DatabaseService, orderID string, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := ds.CreatePhoto(context.Background(), photo.New(id, orderID, "blob://"+id, 4000, 3000)); err != nil {
			t.Fatalf("CreatePhoto(%s) error: %v", id, err)
		}
	}
}

func listIDs(t *testing.T, ds DatabaseService, orderID string) []string {
	t.Helper()
	photos, err := ds.ListPhotos(context.Background(), orderID)
	if err != nil {
		t.Fatalf("ListPhotos error: %v", err)
	}
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSQLite_DoesDatabaseExist(t *testing.T) {
	ds := newTestDB(t)
	if !ds.DoesDatabaseExist() {
		t.Fatalf("expected DoesDatabaseExist to return true")
	}
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	if _, err := NewDatabase("postgres", ""); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestSQLite_CreateAndGetPhoto(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()

	p := photo.New("p1", "o1", "blob://k1", 4000, 3000)
	if err := ds.CreatePhoto(ctx, p); err != nil {
		t.Fatalf("CreatePhoto error: %v", err)
	}
	if p.Rank == "" {
		t.Fatal("expected CreatePhoto to assign a rank")
	}

	got, err := ds.GetPhoto(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPhoto error: %v", err)
	}
	if got.OrderID != "o1" || got.ImageSource != "blob://k1" {
		t.Errorf("unexpected photo: %+v", got)
	}
	if got.IntrinsicWidth != 4000 || got.IntrinsicHeight != 3000 {
		t.Errorf("unexpected dimensions %dx%d", got.IntrinsicWidth, got.IntrinsicHeight)
	}
	if got.CropState != crop.Identity() {
		t.Errorf("expected identity crop, got %v", got.CropState)
	}
	if got.BorderColor != photo.White || got.Effect != effects.Original {
		t.Errorf("unexpected display attributes: %s, %s", got.BorderColor, got.Effect)
	}

	if _, err := ds.GetPhoto(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLite_ListPhotosInUploadOrder(t *testing.T) {
	ds := newTestDB(t)
	addPhotos(t, ds, "o1", "c", "a", "b")
	addPhotos(t, ds, "o2", "x")

	if got := listIDs(t, ds, "o1"); !equalIDs(got, []string{"c", "a", "b"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if got := listIDs(t, ds, "o2"); !equalIDs(got, []string{"x"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if got := listIDs(t, ds, "none"); len(got) != 0 {
		t.Fatalf("expected no photos, got %v", got)
	}
}

func TestSQLite_UpdateCropState(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()
	addPhotos(t, ds, "o1", "p1")

	st := crop.State{Zoom: 2.5, Offset: crop.Offset{X: -0.2, Y: 0.125}}
	if err := ds.UpdateCropState(ctx, "p1", st); err != nil {
		t.Fatalf("UpdateCropState error: %v", err)
	}
	got, err := ds.GetPhoto(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPhoto error: %v", err)
	}
	if got.CropState != st {
		t.Errorf("crop state = %v, want %v", got.CropState, st)
	}

	if err := ds.UpdateCropState(ctx, "missing", st); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLite_UpdateDisplayAndIntrinsic(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()
	addPhotos(t, ds, "o1", "p1")

	if err := ds.UpdateDisplay(ctx, "p1", photo.Pink, effects.Retro, "Summer"); err != nil {
		t.Fatalf("UpdateDisplay error: %v", err)
	}
	if err := ds.SetIntrinsicSize(ctx, "p1", 1080, 1920); err != nil {
		t.Fatalf("SetIntrinsicSize error: %v", err)
	}
	got, err := ds.GetPhoto(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPhoto error: %v", err)
	}
	if got.BorderColor != photo.Pink || got.Effect != effects.Retro || got.Caption != "Summer" {
		t.Errorf("unexpected display attributes: %+v", got)
	}
	if got.IntrinsicWidth != 1080 || got.IntrinsicHeight != 1920 {
		t.Errorf("unexpected dimensions %dx%d", got.IntrinsicWidth, got.IntrinsicHeight)
	}
}

func TestSQLite_DeletePhoto(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()
	addPhotos(t, ds, "o1", "p1", "p2")

	if err := ds.DeletePhoto(ctx, "p1"); err != nil {
		t.Fatalf("DeletePhoto error: %v", err)
	}
	if got := listIDs(t, ds, "o1"); !equalIDs(got, []string{"p2"}) {
		t.Fatalf("unexpected photos after delete: %v", got)
	}
	if err := ds.DeletePhoto(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLite_UpdatePhotoOrder(t *testing.T) {
	ds := newTestDB(t)
	ctx := context.Background()
	addPhotos(t, ds, "o1", "a", "b", "c", "d")

	want := []string{"d", "b", "a", "c"}
	if err := ds.UpdatePhotoOrder(ctx, "o1", want); err != nil {
		t.Fatalf("UpdatePhotoOrder error: %v", err)
	}
	if got := listIDs(t, ds, "o1"); !equalIDs(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	// New uploads still land at the end.
	addPhotos(t, ds, "o1", "e")
	if got := listIDs(t, ds, "o1"); !equalIDs(got, append(want, "e")) {
		t.Fatalf("order after upload = %v", got)
	}

	if err := ds.UpdatePhotoOrder(ctx, "o1", []string{"a", "b"}); err == nil {
		t.Fatal("expected error for incomplete order")
	}
	if err := ds.UpdatePhotoOrder(ctx, "o1", []string{"a", "b", "c", "d", "zz"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign id, got %v", err)
	}
}
