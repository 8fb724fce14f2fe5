package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/senthil524/retroframe-v2-sub000/internal/crop"
	"github.com/senthil524/retroframe-v2-sub000/internal/effects"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
)

var ErrNotFound = errors.New("photo not found")

// DatabaseService is the photo registry. Crop state is only written through
// UpdateCropState, the confirm path of the editor.
type DatabaseService interface {
	CreateDatabase() (*sql.DB, error)
	DoesDatabaseExist() bool
	Close() error

	// CreatePhoto inserts p at the end of its order and sets p.Rank.
	CreatePhoto(ctx context.Context, p *photo.Photo) error
	GetPhoto(ctx context.Context, id string) (*photo.Photo, error)
	// ListPhotos returns the photos of an order in rank order.
	ListPhotos(ctx context.Context, orderID string) ([]*photo.Photo, error)
	SetIntrinsicSize(ctx context.Context, id string, width, height int) error
	UpdateCropState(ctx context.Context, id string, state crop.State) error
	UpdateDisplay(ctx context.Context, id string, border photo.BorderColor, effect effects.Name, caption string) error
	DeletePhoto(ctx context.Context, id string) error
	// UpdatePhotoOrder re-ranks the photos of an order to match ids.
	UpdatePhotoOrder(ctx context.Context, orderID string, ids []string) error
}
