// Package resource manages study resources and the mindmap outlines
// generated from their rich-text content.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/studyhub/content-service/internal/db"
	"github.com/studyhub/content-service/internal/outline"
)

// Resource is a study resource attached to a lesson.
type Resource struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	LessonID       string             `json:"lessonId"`
	SubjectSlug    string             `json:"subjectSlug"`
	Mindmap        json.RawMessage    `json:"mindmap,omitempty" swaggertype:"object"`
	MindmapOutline []*outline.Outline `json:"mindmapOutline"`
	DataTable      json.RawMessage    `json:"dataTable,omitempty" swaggertype:"object"`
	InfographID    *string            `json:"infographId,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// Source is the stored rich-text mindmap of one resource.
type Source struct {
	ID      string
	Mindmap json.RawMessage
}

// ErrNotFound is returned when a resource does not exist.
var ErrNotFound = errors.New("resource not found")

const resourceColumns = `id, title, lesson_id, subject_slug, mindmap, mindmap_outline, data_table, infograph_id, created_at, updated_at`

// Repository handles all resource database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanResource(row pgx.Row) (*Resource, error) {
	res := &Resource{}
	var mindmap, generated, table []byte
	err := row.Scan(&res.ID, &res.Title, &res.LessonID, &res.SubjectSlug, &mindmap, &generated, &table, &res.InfographID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(mindmap) > 0 {
		res.Mindmap = json.RawMessage(mindmap)
	}
	if len(table) > 0 {
		res.DataTable = json.RawMessage(table)
	}
	res.MindmapOutline = []*outline.Outline{}
	if len(generated) > 0 {
		if err := json.Unmarshal(generated, &res.MindmapOutline); err != nil {
			return nil, fmt.Errorf("decode mindmap outline: %w", err)
		}
	}
	return res, nil
}

func encodeOutline(forest []*outline.Outline) ([]byte, error) {
	if forest == nil {
		forest = []*outline.Outline{}
	}
	return json.Marshal(forest)
}

// nullable stores an absent document as SQL NULL.
func nullable(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// Create inserts a resource and returns the stored record.
func (r *Repository) Create(ctx context.Context, res *Resource) (*Resource, error) {
	generated, err := encodeOutline(res.MindmapOutline)
	if err != nil {
		return nil, err
	}
	out, err := scanResource(r.db.QueryRow(ctx,
		`INSERT INTO resources (title, lesson_id, subject_slug, mindmap, mindmap_outline, data_table, infograph_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+resourceColumns,
		res.Title, res.LessonID, res.SubjectSlug, nullable(res.Mindmap), generated, nullable(res.DataTable), res.InfographID,
	))
	if err != nil {
		return nil, writeFailure("create resource", err)
	}
	return out, nil
}

// GetByID fetches a resource by its UUID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Resource, error) {
	res, err := scanResource(r.db.QueryRow(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) || db.IsInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resource by id: %w", err)
	}
	return res, nil
}

// Update overwrites the editable fields of a resource.
func (r *Repository) Update(ctx context.Context, res *Resource) (*Resource, error) {
	generated, err := encodeOutline(res.MindmapOutline)
	if err != nil {
		return nil, err
	}
	out, err := scanResource(r.db.QueryRow(ctx,
		`UPDATE resources
		 SET title = $2, lesson_id = $3, subject_slug = $4, mindmap = $5, mindmap_outline = $6,
		     data_table = $7, infograph_id = $8, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+resourceColumns,
		res.ID, res.Title, res.LessonID, res.SubjectSlug, nullable(res.Mindmap), generated, nullable(res.DataTable), res.InfographID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, writeFailure("update resource", err)
	}
	return out, nil
}

// writeFailure wraps a failed insert or update. An infograph id with no
// matching media row is a client error.
func writeFailure(op string, err error) error {
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: infographId does not reference a media record", ErrInvalidInput)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Delete removes a resource.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		if db.IsInvalidText(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSources returns the rich-text mindmap of every resource that has one.
func (r *Repository) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, mindmap FROM resources WHERE mindmap IS NOT NULL ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list mindmaps: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var s Source
		var raw []byte
		if err := rows.Scan(&s.ID, &raw); err != nil {
			return nil, fmt.Errorf("scan mindmap: %w", err)
		}
		s.Mindmap = raw
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveOutline stores a regenerated outline.
func (r *Repository) SaveOutline(ctx context.Context, id string, forest []*outline.Outline) error {
	generated, err := encodeOutline(forest)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`UPDATE resources SET mindmap_outline = $2, updated_at = NOW() WHERE id = $1`,
		id, generated,
	)
	if err != nil {
		return fmt.Errorf("save mindmap outline: %w", err)
	}
	return nil
}
