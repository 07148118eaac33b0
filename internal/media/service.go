package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/studyhub/content-service/internal/storage"
)

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid media input")

// repository is the persistence the service needs; *Repository implements it.
type repository interface {
	Create(ctx context.Context, alt string, f File) (*Media, error)
	GetByID(ctx context.Context, id string) (*Media, error)
	UpdateFile(ctx context.Context, id string, f File) (*Media, error)
	Delete(ctx context.Context, id string) error
}

// UploadInput is a file submitted for storage.
type UploadInput struct {
	Alt         string
	Namespace   string // explicit namespace requested by the caller
	Origin      string // request referrer, used by the namespace heuristic
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func (in UploadInput) validate(requireAlt bool) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Alt, validation.When(requireAlt, validation.Required), validation.Length(0, 500)),
		validation.Field(&in.Filename, validation.Required, validation.Length(1, 255)),
		validation.Field(&in.ContentType, validation.Required, validation.By(imageOnly)),
		validation.Field(&in.Body, validation.NotNil),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func imageOnly(value interface{}) error {
	ct, _ := value.(string)
	if !strings.HasPrefix(ct, "image/") {
		return errors.New("only image/* uploads are accepted")
	}
	return nil
}

// SupersededError reports that a file was replaced but the previous object
// could not be deleted. The record already points at the new object.
type SupersededError struct {
	Previous storage.Descriptor
	Err      error
}

func (e *SupersededError) Error() string {
	return fmt.Sprintf("superseded object %q not deleted: %v", e.Previous.Key(), e.Err)
}

func (e *SupersededError) Unwrap() error { return e.Err }

// Service keeps media records and remote objects consistent.
type Service struct {
	repo     repository
	assets   storage.Adapter
	resolver *storage.Resolver
	locks    *keyedMutex
	logger   *slog.Logger
}

// NewService creates a new media Service.
func NewService(repo repository, assets storage.Adapter, resolver *storage.Resolver, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		assets:   assets,
		resolver: resolver,
		locks:    newKeyedMutex(),
		logger:   logger,
	}
}

// Upload stores a new file and records it. If the record cannot be written
// the object is removed again, so a failed upload leaves nothing behind.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Media, error) {
	if err := in.validate(true); err != nil {
		return nil, err
	}

	ns := s.resolver.Resolve(storage.Hints{Explicit: in.Namespace, Origin: in.Origin})
	file, err := s.store(ctx, ns, in)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.Create(ctx, in.Alt, file)
	if err != nil {
		s.discard(ctx, file.Descriptor)
		return nil, fmt.Errorf("record media: %w", err)
	}
	return s.withURL(m), nil
}

// Replace swaps the file of an existing record. Changes to one record are
// serialized. The previous object is deleted only after the record points
// at the new one.
func (s *Service) Replace(ctx context.Context, id string, in UploadInput) (*Media, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ns := s.resolver.Resolve(storage.Hints{Explicit: in.Namespace, Document: current.Namespace, Origin: in.Origin})
	file, err := s.store(ctx, ns, in)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateFile(ctx, id, file)
	if err != nil {
		s.discard(ctx, file.Descriptor)
		return nil, fmt.Errorf("record replacement: %w", err)
	}

	previous := current.Descriptor()
	if previous.Key() != file.Descriptor.Key() {
		if err := s.assets.Delete(ctx, previous); err != nil {
			s.logger.Error("superseded media object left in storage",
				"media_id", id, "key", previous.Key(), "error", err)
			return s.withURL(updated), &SupersededError{Previous: previous, Err: err}
		}
	}
	return s.withURL(updated), nil
}

// Get returns a record with its URL filled in.
func (s *Service) Get(ctx context.Context, id string) (*Media, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withURL(m), nil
}

// URL derives the URL of a record's file, optionally as a variant.
func (s *Service) URL(ctx context.Context, id string, v *storage.Variant) (string, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return s.assets.URLFor(m.Descriptor(), v)
}

// Delete removes the remote object, then the record. When the object
// cannot be deleted the record is kept so the call can be retried.
func (s *Service) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.assets.Delete(ctx, m.Descriptor()); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) store(ctx context.Context, ns string, in UploadInput) (File, error) {
	d, err := s.assets.Store(ctx, ns, storage.Upload{
		Body:        in.Body,
		Size:        in.Size,
		Filename:    in.Filename,
		ContentType: in.ContentType,
	})
	if err != nil {
		return File{}, err
	}
	return File{Descriptor: d, Filename: in.Filename, MimeType: in.ContentType, Filesize: in.Size}, nil
}

// discard removes an object that never made it into a record.
func (s *Service) discard(ctx context.Context, d storage.Descriptor) {
	if err := s.assets.Delete(context.WithoutCancel(ctx), d); err != nil {
		s.logger.Error("orphaned media object left in storage", "key", d.Key(), "error", err)
	}
}

func (s *Service) withURL(m *Media) *Media {
	u, err := s.assets.URLFor(m.Descriptor(), nil)
	if err != nil {
		s.logger.Warn("media record has an unusable descriptor", "media_id", m.ID, "error", err)
		return m
	}
	m.URL = u
	return m
}

// IsNotFound returns true when the error indicates a media record was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
