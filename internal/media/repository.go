// Package media manages uploaded assets and the records that own them.
package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyhub/content-service/internal/db"
	"github.com/studyhub/content-service/internal/storage"
)

// Media is a stored asset record. Namespace and LocalID form its descriptor
// and are the only source of truth for where the object lives.
type Media struct {
	ID        string    `json:"id"`
	Alt       string    `json:"alt"`
	Namespace string    `json:"namespace"`
	LocalID   string    `json:"localId"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mimeType"`
	Filesize  int64     `json:"filesize"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Descriptor returns the storage descriptor recorded on m.
func (m *Media) Descriptor() storage.Descriptor {
	return storage.Descriptor{Namespace: m.Namespace, LocalID: m.LocalID}
}

// File describes the object currently attached to a record.
type File struct {
	Descriptor storage.Descriptor
	Filename   string
	MimeType   string
	Filesize   int64
}

// ErrNotFound is returned when a media record does not exist.
var ErrNotFound = errors.New("media not found")

// ErrAlreadyExists is returned when a descriptor is already recorded.
var ErrAlreadyExists = errors.New("media object already recorded")

const mediaColumns = `id, alt, namespace, local_id, filename, mime_type, filesize, created_at, updated_at`

// Repository handles all media database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanMedia(row pgx.Row) (*Media, error) {
	m := &Media{}
	err := row.Scan(&m.ID, &m.Alt, &m.Namespace, &m.LocalID, &m.Filename, &m.MimeType, &m.Filesize, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

// Create inserts a media record for an uploaded file.
func (r *Repository) Create(ctx context.Context, alt string, f File) (*Media, error) {
	m, err := scanMedia(r.db.QueryRow(ctx,
		`INSERT INTO media (alt, namespace, local_id, filename, mime_type, filesize)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+mediaColumns,
		alt, f.Descriptor.Namespace, f.Descriptor.LocalID, f.Filename, f.MimeType, f.Filesize,
	))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create media: %w", err)
	}
	return m, nil
}

// GetByID fetches a media record by its UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Media, error) {
	m, err := scanMedia(r.db.QueryRow(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media by id: %w", err)
	}
	return m, nil
}

// UpdateFile points the record at a new object.
func (r *Repository) UpdateFile(ctx context.Context, id string, f File) (*Media, error) {
	m, err := scanMedia(r.db.QueryRow(ctx,
		`UPDATE media
		 SET namespace = $2, local_id = $3, filename = $4, mime_type = $5, filesize = $6, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+mediaColumns,
		id, f.Descriptor.Namespace, f.Descriptor.LocalID, f.Filename, f.MimeType, f.Filesize,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("update media file: %w", err)
	}
	return m, nil
}

// Delete removes the record.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
