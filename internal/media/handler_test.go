package media

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/content-service/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newRouter(t *testing.T) (http.Handler, fixture) {
	t.Helper()
	f := newFixture(t)
	h := NewHandler(f.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/media", func(r chi.Router) {
		h.Routes(r, func(next http.Handler) http.Handler { return next })
	})
	return r, f
}

// pngBytes starts with the PNG signature so content sniffing reports image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func multipartBody(t *testing.T, alt, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if alt != "" {
		require.NoError(t, mw.WriteField("alt", alt))
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="infograph.png"`)
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, into interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	if into != nil {
		require.NoError(t, json.Unmarshal(env.Data, into))
	}
	return env
}

func TestHandler_UploadThenURL(t *testing.T) {
	router, f := newRouter(t)

	body, ct := multipartBody(t, "Water cycle", "application/octet-stream", pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/media?namespace=lessons", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var m Media
	decode(t, rec, &m)
	assert.Equal(t, "lessons", m.Namespace)
	assert.Equal(t, "image/png", m.MimeType)
	assert.Equal(t, 1, f.backend.Len())

	req = httptest.NewRequest(http.MethodGet, "/media/"+m.ID+"/url?width=200&format=webp", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var u urlData
	decode(t, rec, &u)
	assert.Equal(t, "https://cdn.test/media/lessons/"+m.LocalID+"?c=fill&f=webp&w=200", u.URL)
}

func TestHandler_UploadRejectsNonImage(t *testing.T) {
	router, f := newRouter(t)

	body, ct := multipartBody(t, "Notes", "text/plain", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, f.backend.Len())
}

func TestHandler_UploadProviderFailure(t *testing.T) {
	router, f := newRouter(t)
	f.backend.PutErr = &storage.ProviderError{StatusCode: http.StatusInsufficientStorage, Message: "quota exceeded"}

	body, ct := multipartBody(t, "Map", "image/png", pngBytes)
	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	env := decode(t, rec, nil)
	assert.Equal(t, "upload failed: quota exceeded", env.Error)
	assert.Empty(t, f.repo.records)
}

func TestHandler_InvalidIDAndMissing(t *testing.T) {
	router, _ := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/6b0f1f8e-3c52-4c67-9a55-1b7d0e3f7a10", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_URLRejectsBadVariant(t *testing.T) {
	router, f := newRouter(t)
	m, err := f.svc.Upload(context.Background(), image("x"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/"+m.ID+"/url?width=wide", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/"+m.ID+"/url?crop=stretch", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Delete(t *testing.T) {
	router, f := newRouter(t)
	m, err := f.svc.Upload(context.Background(), image("x"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/media/"+m.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, f.backend.Len())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/media/"+m.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
