package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/content-service/internal/storage"
)

type fakeRepo struct {
	mu        sync.Mutex
	seq       int
	records   map[string]*Media
	createErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*Media)}
}

func (f *fakeRepo) Create(_ context.Context, alt string, file File) (*Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	m := &Media{
		ID:        fmt.Sprintf("00000000-0000-0000-0000-%012d", f.seq),
		Alt:       alt,
		Namespace: file.Descriptor.Namespace,
		LocalID:   file.Descriptor.LocalID,
		Filename:  file.Filename,
		MimeType:  file.MimeType,
		Filesize:  file.Filesize,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.records[m.ID] = m
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id string) (*Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) UpdateFile(_ context.Context, id string, file File) (*Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	m, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Namespace = file.Descriptor.Namespace
	m.LocalID = file.Descriptor.LocalID
	m.Filename = file.Filename
	m.MimeType = file.MimeType
	m.Filesize = file.Filesize
	cp := *m
	return &cp, nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return ErrNotFound
	}
	delete(f.records, id)
	return nil
}

type fixture struct {
	svc     *Service
	repo    *fakeRepo
	backend *storage.MemoryBackend
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	resolver, err := storage.NewResolver("misc",
		[]string{"subjects", "lessons", "resources"},
		map[string]string{"resources": "lessons"},
	)
	require.NoError(t, err)
	backend := storage.NewMemoryBackend()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assets := storage.NewAssetStore(backend, "https://cdn.test/media", time.Second, nil, logger)
	repo := newFakeRepo()
	return fixture{
		svc:     NewService(repo, assets, resolver, logger),
		repo:    repo,
		backend: backend,
	}
}

func image(body string) UploadInput {
	return UploadInput{
		Alt:         "Cell diagram",
		Filename:    "cell.png",
		ContentType: "image/png",
		Size:        int64(len(body)),
		Body:        strings.NewReader(body),
	}
}

func TestUpload_ResolvesNamespaceFromOrigin(t *testing.T) {
	f := newFixture(t)

	in := image("png-bytes")
	in.Origin = "https://cms.test/admin/collections/resources/abc"
	m, err := f.svc.Upload(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "lessons", m.Namespace)
	assert.Equal(t, "https://cdn.test/media/lessons/"+m.LocalID, m.URL)
	data, ok := f.backend.Get(m.Descriptor().Key())
	require.True(t, ok)
	assert.Equal(t, "png-bytes", string(data))
}

func TestUpload_ExplicitNamespaceWins(t *testing.T) {
	f := newFixture(t)

	in := image("x")
	in.Namespace = "subjects"
	in.Origin = "/admin/collections/lessons"
	m, err := f.svc.Upload(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "subjects", m.Namespace)

	m, err = f.svc.Upload(context.Background(), image("y"))
	require.NoError(t, err)
	assert.Equal(t, "misc", m.Namespace)
}

func TestUpload_Validation(t *testing.T) {
	f := newFixture(t)

	in := image("x")
	in.ContentType = "application/pdf"
	_, err := f.svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)

	in = image("x")
	in.Alt = ""
	_, err = f.svc.Upload(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.backend.Len())
}

func TestUpload_ProviderFailureRecordsNothing(t *testing.T) {
	f := newFixture(t)
	f.backend.PutErr = &storage.ProviderError{StatusCode: http.StatusServiceUnavailable, Message: "down"}

	_, err := f.svc.Upload(context.Background(), image("x"))
	var upErr *storage.UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusServiceUnavailable, upErr.StatusCode)
	assert.Empty(t, f.repo.records)
}

func TestUpload_RecordFailureRemovesObject(t *testing.T) {
	f := newFixture(t)
	f.repo.createErr = errors.New("db down")

	_, err := f.svc.Upload(context.Background(), image("x"))
	require.Error(t, err)
	assert.Zero(t, f.backend.Len())
}

func TestReplace_DeletesSupersededObject(t *testing.T) {
	f := newFixture(t)
	in := image("old")
	in.Namespace = "subjects"
	original, err := f.svc.Upload(context.Background(), in)
	require.NoError(t, err)

	replaced, err := f.svc.Replace(context.Background(), original.ID, image("new"))
	require.NoError(t, err)

	assert.Equal(t, "subjects", replaced.Namespace, "namespace recorded on the document is kept")
	assert.NotEqual(t, original.LocalID, replaced.LocalID)
	_, ok := f.backend.Get(original.Descriptor().Key())
	assert.False(t, ok)
	data, ok := f.backend.Get(replaced.Descriptor().Key())
	require.True(t, ok)
	assert.Equal(t, "new", string(data))
	assert.Equal(t, 1, f.backend.Len())
}

func TestReplace_FailedUploadKeepsRecord(t *testing.T) {
	f := newFixture(t)
	original, err := f.svc.Upload(context.Background(), image("old"))
	require.NoError(t, err)

	f.backend.PutErr = errors.New("connection reset")
	_, err = f.svc.Replace(context.Background(), original.ID, image("new"))
	require.Error(t, err)

	current, err := f.svc.Get(context.Background(), original.ID)
	require.NoError(t, err)
	assert.Equal(t, original.Descriptor(), current.Descriptor())
	_, ok := f.backend.Get(original.Descriptor().Key())
	assert.True(t, ok)
}

func TestReplace_FailedRecordUpdateRemovesNewObject(t *testing.T) {
	f := newFixture(t)
	original, err := f.svc.Upload(context.Background(), image("old"))
	require.NoError(t, err)

	f.repo.updateErr = errors.New("db down")
	_, err = f.svc.Replace(context.Background(), original.ID, image("new"))
	require.Error(t, err)
	assert.Equal(t, 1, f.backend.Len())
	_, ok := f.backend.Get(original.Descriptor().Key())
	assert.True(t, ok)
}

func TestReplace_SupersededDeleteFailureIsReported(t *testing.T) {
	f := newFixture(t)
	original, err := f.svc.Upload(context.Background(), image("old"))
	require.NoError(t, err)

	f.backend.RemoveErr = &storage.ProviderError{StatusCode: http.StatusForbidden, Message: "denied"}
	replaced, err := f.svc.Replace(context.Background(), original.ID, image("new"))

	var sup *SupersededError
	require.ErrorAs(t, err, &sup)
	assert.Equal(t, original.Descriptor(), sup.Previous)
	require.NotNil(t, replaced)
	assert.NotEqual(t, original.LocalID, replaced.LocalID)
}

func TestReplace_SerializedPerRecord(t *testing.T) {
	f := newFixture(t)
	original, err := f.svc.Upload(context.Background(), image("v0"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 1; i <= 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Replace(context.Background(), original.ID, image(fmt.Sprintf("v%d", i)))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.backend.Len(), "every superseded object is deleted")
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	m, err := f.svc.Upload(context.Background(), image("x"))
	require.NoError(t, err)

	f.backend.RemoveErr = errors.New("timeout talking to provider")
	err = f.svc.Delete(context.Background(), m.ID)
	var delErr *storage.DeleteError
	require.ErrorAs(t, err, &delErr)
	_, err = f.svc.Get(context.Background(), m.ID)
	require.NoError(t, err, "record survives a failed delete")

	f.backend.RemoveErr = nil
	require.NoError(t, f.svc.Delete(context.Background(), m.ID))
	_, err = f.svc.Get(context.Background(), m.ID)
	assert.True(t, f.svc.IsNotFound(err))
	assert.Zero(t, f.backend.Len())
}

func TestURL(t *testing.T) {
	f := newFixture(t)
	in := image("x")
	in.Namespace = "lessons"
	m, err := f.svc.Upload(context.Background(), in)
	require.NoError(t, err)

	u, err := f.svc.URL(context.Background(), m.ID, &storage.Variant{Width: 120, Height: 80})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/media/lessons/"+m.LocalID+"?c=fill&f=auto&h=80&w=120", u)

	_, err = f.svc.URL(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
