package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/rs/xid"
)

const defaultTimeout = 30 * time.Second

var (
	localIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*(\.[a-z0-9]{1,10})?$`)
	idPattern      = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,127}$`)
	extPattern     = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)
)

// AssetStore is the Adapter over a Backend. All per-asset state lives in
// the descriptors it returns, so one AssetStore serves every namespace and
// is safe for concurrent use.
type AssetStore struct {
	backend    Backend
	publicBase string
	timeout    time.Duration
	metrics    *Metrics
	logger     *slog.Logger
}

var _ Adapter = (*AssetStore)(nil)

// NewAssetStore returns an AssetStore writing to backend. publicBase is the
// browser-accessible base URL of the bucket, e.g. "http://localhost:9000/media".
// timeout bounds every remote call; zero selects the default.
func NewAssetStore(backend Backend, publicBase string, timeout time.Duration, metrics *Metrics, logger *slog.Logger) *AssetStore {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetStore{
		backend:    backend,
		publicBase: strings.TrimRight(publicBase, "/"),
		timeout:    timeout,
		metrics:    metrics,
		logger:     logger,
	}
}

// Store uploads up under namespace. On failure it returns an *UploadError
// and no descriptor; the caller must not record anything for the asset.
func (s *AssetStore) Store(ctx context.Context, namespace string, up Upload) (Descriptor, error) {
	if !ValidNamespace(namespace) {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrInvalidNamespace, namespace)
	}
	if up.Body == nil {
		return Descriptor{}, ErrEmptyUpload
	}
	ext := extension(up.Filename, up.ContentType)
	localID, err := newLocalID(up.ID, ext)
	if err != nil {
		return Descriptor{}, err
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	d := Descriptor{Namespace: namespace, LocalID: localID}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err = s.backend.Put(ctx, d.Key(), up.Body, up.Size, contentType)
	s.metrics.observe("store", start, err)
	if err != nil {
		status, msg := providerContext(err)
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "upload timed out"
		}
		s.logger.Warn("asset upload failed", "key", d.Key(), "status", status, "error", err)
		return Descriptor{}, &UploadError{Key: d.Key(), StatusCode: status, Message: msg, Err: err}
	}

	s.logger.Debug("asset stored", "key", d.Key(), "content_type", contentType, "size", up.Size)
	return d, nil
}

// URLFor derives the URL of d without contacting the provider. v overrides
// the variant recorded on d. The same inputs always yield the same URL.
func (s *AssetStore) URLFor(d Descriptor, v *Variant) (string, error) {
	if err := checkDescriptor(d); err != nil {
		return "", err
	}
	u := s.publicBase + "/" + d.Key()

	if v == nil {
		v = d.Variant
	}
	if v == nil {
		return u, nil
	}
	if err := v.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidVariant, err)
	}
	return u + "?" + v.query(), nil
}

// Delete removes the object addressed by d. A missing object counts as
// deleted. On failure it returns a *DeleteError and the object must be
// presumed present.
func (s *AssetStore) Delete(ctx context.Context, d Descriptor) error {
	if err := checkDescriptor(d); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := s.backend.Remove(ctx, d.Key())
	if err != nil && isNotFound(err) {
		err = nil
	}
	s.metrics.observe("delete", start, err)
	if err != nil {
		status, msg := providerContext(err)
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "delete timed out"
		}
		s.logger.Warn("asset delete failed", "key", d.Key(), "status", status, "error", err)
		return &DeleteError{Key: d.Key(), StatusCode: status, Message: msg, Err: err}
	}
	return nil
}

func checkDescriptor(d Descriptor) error {
	switch {
	case d.LocalID == "":
		return fmt.Errorf("%w: empty local id", ErrInvalidDescriptor)
	case !ValidNamespace(d.Namespace):
		return fmt.Errorf("%w: namespace %q", ErrInvalidDescriptor, d.Namespace)
	case !localIDPattern.MatchString(d.LocalID):
		return fmt.Errorf("%w: local id %q", ErrInvalidDescriptor, d.LocalID)
	}
	return nil
}

// newLocalID returns id+ext for deterministic naming, or a fresh xid. A
// deterministic id is used verbatim so distinct ids never share a key.
func newLocalID(id, ext string) (string, error) {
	if id == "" {
		return xid.New().String() + ext, nil
	}
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: id %q must be lowercase letters, digits, '-' or '_'", ErrInvalidDescriptor, id)
	}
	return id + ext, nil
}

// extension picks the file extension from the filename, then the content type.
func extension(filename, contentType string) string {
	if ext := strings.ToLower(path.Ext(filename)); extPattern.MatchString(ext) {
		if ext == ".jpeg" {
			return ".jpg"
		}
		return ext
	}
	if contentType == "" {
		return ""
	}
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	for _, ext := range exts {
		if ext == ".jpg" {
			return ext
		}
	}
	if extPattern.MatchString(exts[0]) {
		return exts[0]
	}
	return ""
}
