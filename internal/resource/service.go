package resource

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/studyhub/content-service/internal/outline"
	"github.com/studyhub/content-service/internal/revalidate"
)

// conversionCacheSize bounds the number of converted documents kept by Convert.
const conversionCacheSize = 512

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid resource input")

// Revalidation reasons sent with resource notifications.
const (
	ReasonCreated         = "created"
	ReasonOutlineUpdate   = "mindmap-update"
	ReasonInfographUpdate = "infograph-update"
	ReasonDataTableUpdate = "datatable-update"
	ReasonDeleted         = "deleted"
)

type repository interface {
	Create(ctx context.Context, res *Resource) (*Resource, error)
	GetByID(ctx context.Context, id string) (*Resource, error)
	Update(ctx context.Context, res *Resource) (*Resource, error)
	Delete(ctx context.Context, id string) error
	ListSources(ctx context.Context) ([]Source, error)
	SaveOutline(ctx context.Context, id string, forest []*outline.Outline) error
}

type notifier interface {
	Notify(ctx context.Context, note revalidate.Notification)
}

// Input holds the editable fields of a resource.
type Input struct {
	Title       string          `json:"title" example:"Photosynthesis summary"`
	LessonID    string          `json:"lessonId" example:"lesson-12"`
	SubjectSlug string          `json:"subjectSlug" example:"biology"`
	Mindmap     json.RawMessage `json:"mindmap,omitempty" swaggertype:"object"`
	DataTable   json.RawMessage `json:"dataTable,omitempty" swaggertype:"object"`
	InfographID *string         `json:"infographId,omitempty"`
}

func (in Input) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.LessonID, validation.Length(0, 100)),
		validation.Field(&in.SubjectSlug, validation.Length(0, 100)),
		validation.Field(&in.InfographID, validation.NilOrNotEmpty, is.UUID),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(in.Mindmap) > 0 && !json.Valid(in.Mindmap) {
		return fmt.Errorf("%w: mindmap: must be valid JSON", ErrInvalidInput)
	}
	if len(in.DataTable) > 0 && !json.Valid(in.DataTable) {
		return fmt.Errorf("%w: dataTable: must be valid JSON", ErrInvalidInput)
	}
	return nil
}

// Service owns resource records and keeps their outlines in sync with the
// rich-text mindmap they are generated from.
type Service struct {
	repo     repository
	notifier notifier
	opts     outline.Options
	logger   *slog.Logger

	// converted caches Convert results by document hash. Cached forests are
	// shared and must not be modified.
	converted *lru.Cache[string, []*outline.Outline]
}

// NewService creates a new resource Service.
func NewService(repo repository, n notifier, opts outline.Options, logger *slog.Logger) *Service {
	converted, _ := lru.New[string, []*outline.Outline](conversionCacheSize)
	return &Service{repo: repo, notifier: n, opts: opts, logger: logger, converted: converted}
}

// Convert builds an outline from a Lexical document without storing anything.
func (s *Service) Convert(data []byte) ([]*outline.Outline, error) {
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])
	if forest, ok := s.converted.Get(key); ok {
		return forest, nil
	}

	forest, err := outline.BuildLexical(data, s.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	s.converted.Add(key, forest)
	return forest, nil
}

// Create stores a new resource with its generated outline.
func (s *Service) Create(ctx context.Context, in Input) (*Resource, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	res := &Resource{
		Title:       in.Title,
		LessonID:    in.LessonID,
		SubjectSlug: in.SubjectSlug,
		Mindmap:     in.Mindmap,
		DataTable:   in.DataTable,
		InfographID: in.InfographID,
	}
	res.MindmapOutline = s.generate(in.Mindmap, nil, "")

	created, err := s.repo.Create(ctx, res)
	if err != nil {
		return nil, err
	}
	s.logger.Info("resource created", "resource_id", created.ID, "outline_roots", len(created.MindmapOutline))
	s.announce(ctx, created, ReasonCreated)
	return created, nil
}

// Update replaces the editable fields of a resource. A mindmap that cannot
// be converted keeps the previous outline.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Resource, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := &Resource{
		ID:          id,
		Title:       in.Title,
		LessonID:    in.LessonID,
		SubjectSlug: in.SubjectSlug,
		Mindmap:     in.Mindmap,
		DataTable:   in.DataTable,
		InfographID: in.InfographID,
	}
	next.MindmapOutline = s.generate(in.Mindmap, current.MindmapOutline, id)

	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return nil, err
	}

	switch {
	case !sameOutline(current.MindmapOutline, updated.MindmapOutline):
		s.announce(ctx, updated, ReasonOutlineUpdate)
	case !sameRef(current.InfographID, updated.InfographID):
		s.announce(ctx, updated, ReasonInfographUpdate)
	case !sameJSON(current.DataTable, updated.DataTable):
		s.announce(ctx, updated, ReasonDataTableUpdate)
	}
	return updated, nil
}

// Get returns a resource by id.
func (s *Service) Get(ctx context.Context, id string) (*Resource, error) {
	return s.repo.GetByID(ctx, id)
}

// Outline returns only the generated outline of a resource.
func (s *Service) Outline(ctx context.Context, id string) ([]*outline.Outline, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.MindmapOutline, nil
}

// Delete removes a resource. The resources page is always revalidated,
// whether or not the resource belonged to a lesson.
func (s *Service) Delete(ctx context.Context, id string) error {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.Notify(ctx, revalidate.Notification{Type: "resources", ID: res.ID, LessonID: res.LessonID, Reason: ReasonDeleted})
	if res.SubjectSlug != "" {
		s.notifier.Notify(ctx, revalidate.Notification{Type: "lessons", LessonID: res.LessonID, Subject: res.SubjectSlug, Reason: ReasonDeleted})
	}
	return nil
}

// RebuildStats summarizes a RebuildMindmaps run.
type RebuildStats struct {
	Rebuilt int `json:"rebuilt"`
	Skipped int `json:"skipped"`
}

// RebuildMindmaps regenerates every stored outline, at most concurrency at
// a time. Documents that cannot be converted are skipped and logged; a
// storage error stops the run.
func (s *Service) RebuildMindmaps(ctx context.Context, concurrency int) (RebuildStats, error) {
	sources, err := s.repo.ListSources(ctx)
	if err != nil {
		return RebuildStats{}, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	var rebuilt, skipped atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			forest, err := outline.BuildLexical(src.Mindmap, s.opts)
			if err != nil {
				s.logger.Warn("skipping unconvertible mindmap", "resource_id", src.ID, "error", err)
				skipped.Add(1)
				return nil
			}
			if err := s.repo.SaveOutline(gctx, src.ID, forest); err != nil {
				return fmt.Errorf("resource %s: %w", src.ID, err)
			}
			rebuilt.Add(1)
			return nil
		})
	}
	err = g.Wait()

	stats := RebuildStats{Rebuilt: int(rebuilt.Load()), Skipped: int(skipped.Load())}
	s.logger.Info("mindmaps rebuilt", "rebuilt", stats.Rebuilt, "skipped", stats.Skipped, "total", len(sources))
	return stats, err
}

// IsNotFound returns true when the error indicates a resource was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// generate builds the outline for raw, falling back to previous when the
// document is malformed.
func (s *Service) generate(raw json.RawMessage, previous []*outline.Outline, id string) []*outline.Outline {
	if len(raw) == 0 {
		return []*outline.Outline{}
	}
	forest, err := outline.BuildLexical(raw, s.opts)
	if err != nil {
		s.logger.Warn("mindmap conversion failed, keeping previous outline", "resource_id", id, "error", err)
		if previous == nil {
			return []*outline.Outline{}
		}
		return previous
	}
	return forest
}

func (s *Service) announce(ctx context.Context, res *Resource, reason string) {
	if res.LessonID != "" {
		s.notifier.Notify(ctx, revalidate.Notification{Type: "resources", ID: res.ID, LessonID: res.LessonID, Reason: reason})
	}
	if res.SubjectSlug != "" {
		s.notifier.Notify(ctx, revalidate.Notification{Type: "lessons", LessonID: res.LessonID, Subject: res.SubjectSlug, Reason: reason})
	}
}

func sameOutline(a, b []*outline.Outline) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ja, jb)
}

// sameJSON compares two documents ignoring insignificant whitespace.
func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if len(a) > 0 && json.Compact(&ca, a) != nil {
		return false
	}
	if len(b) > 0 && json.Compact(&cb, b) != nil {
		return false
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
