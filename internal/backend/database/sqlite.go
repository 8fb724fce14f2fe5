package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/senthil524/retroframe-v2-sub000/internal/crop"
	"github.com/senthil524/retroframe-v2-sub000/internal/effects"
	"github.com/senthil524/retroframe-v2-sub000/internal/photo"
	_ "modernc.org/sqlite"
)

const photoColumns = "id, order_id, image_source, intrinsic_width, intrinsic_height, crop_state, border_color, effect, caption, rank"

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (DatabaseService, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	if connectionString == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() (*sql.DB, error) {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS photos (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL,
		image_source TEXT NOT NULL,
		intrinsic_width INTEGER NOT NULL DEFAULT 0,
		intrinsic_height INTEGER NOT NULL DEFAULT 0,
		crop_state TEXT NOT NULL,
		border_color TEXT NOT NULL,
		effect TEXT NOT NULL,
		caption TEXT NOT NULL DEFAULT '',
		rank TEXT NOT NULL
	)`)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS photos_order_rank ON photos (order_id, rank)`); err != nil {
		return nil, err
	}

	return s.db, nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// SQLite creates the file on connect, so a successful ping is enough.
	err := s.db.Ping()
	return err == nil
}

func (s *SQLiteDatabase) CreatePhoto(ctx context.Context, p *photo.Photo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var last sql.NullString
	if err := tx.QueryRowContext(ctx, "SELECT MAX(rank) FROM photos WHERE order_id = ?", p.OrderID).Scan(&last); err != nil {
		return fmt.Errorf("failed to read last rank: %w", err)
	}
	p.Rank = NextRank(last.String)

	_, err = tx.ExecContext(ctx, "INSERT INTO photos ("+photoColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.OrderID, p.ImageSource, p.IntrinsicWidth, p.IntrinsicHeight,
		p.CropState.String(), string(p.BorderColor), string(p.Effect), p.Caption, p.Rank)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteDatabase) GetPhoto(ctx context.Context, id string) (*photo.Photo, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+photoColumns+" FROM photos WHERE id = ?", id)
	p, err := scanPhoto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteDatabase) ListPhotos(ctx context.Context, orderID string) ([]*photo.Photo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+photoColumns+" FROM photos WHERE order_id = ? ORDER BY rank ASC, id ASC", orderID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	var photos []*photo.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (s *SQLiteDatabase) SetIntrinsicSize(ctx context.Context, id string, width, height int) error {
	return s.update(ctx, id, "UPDATE photos SET intrinsic_width = ?, intrinsic_height = ? WHERE id = ?", width, height, id)
}

func (s *SQLiteDatabase) UpdateCropState(ctx context.Context, id string, state crop.State) error {
	return s.update(ctx, id, "UPDATE photos SET crop_state = ? WHERE id = ?", state.Sanitize().String(), id)
}

func (s *SQLiteDatabase) UpdateDisplay(ctx context.Context, id string, border photo.BorderColor, effect effects.Name, caption string) error {
	return s.update(ctx, id, "UPDATE photos SET border_color = ?, effect = ?, caption = ? WHERE id = ?",
		string(border), string(effect), caption, id)
}

func (s *SQLiteDatabase) DeletePhoto(ctx context.Context, id string) error {
	return s.update(ctx, id, "DELETE FROM photos WHERE id = ?", id)
}

func (s *SQLiteDatabase) UpdatePhotoOrder(ctx context.Context, orderID string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, "SELECT id, rank FROM photos WHERE order_id = ?", orderID)
	if err != nil {
		return err
	}
	current := make(map[string]string)
	for rows.Next() {
		var id, rank string
		if err := rows.Scan(&id, &rank); err != nil {
			_ = rows.Close()
			return err
		}
		current[id] = rank
	}
	if err := rows.Close(); err != nil {
		return err
	}

	if len(ids) != len(current) {
		return fmt.Errorf("order %s has %d photos, got %d ids", orderID, len(current), len(ids))
	}
	for _, id := range ids {
		if _, ok := current[id]; !ok {
			return fmt.Errorf("%w: %s is not part of order %s", ErrNotFound, id, orderID)
		}
	}

	updates := Rerank(current, ids)
	for id, rank := range updates {
		if _, err := tx.ExecContext(ctx, "UPDATE photos SET rank = ? WHERE id = ?", rank, id); err != nil {
			return fmt.Errorf("failed to update rank of %s: %w", id, err)
		}
	}
	slog.Debug("Database: reordered photos", "order", orderID, "updated", len(updates))
	return tx.Commit()
}

func (s *SQLiteDatabase) update(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row scanner) (*photo.Photo, error) {
	var (
		p         photo.Photo
		cropState string
		border    string
		effect    string
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.ImageSource, &p.IntrinsicWidth, &p.IntrinsicHeight,
		&cropState, &border, &effect, &p.Caption, &p.Rank)
	if err != nil {
		return nil, err
	}

	// Stored crop state is untrusted: Parse falls back to identity.
	st, err := crop.Parse([]byte(cropState))
	if err != nil {
		slog.Warn("Database: invalid crop state, using identity", "photo", p.ID, "error", err)
	}
	p.CropState = st
	p.BorderColor = photo.BorderColor(border)
	p.Effect = effects.Name(effect)
	return &p, nil
}
