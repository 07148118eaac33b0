package media

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/studyhub/content-service/internal/response"
	"github.com/studyhub/content-service/internal/storage"
)

const maxUploadSize = 20 << 20

// Handler holds HTTP handlers for media endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a new media Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the public read routes and, behind requireAuth, the
// mutating ones.
func (h *Handler) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/{id}", h.Get)
	r.Get("/{id}/url", h.URL)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.Upload)
		r.Put("/{id}/file", h.Replace)
		r.Delete("/{id}", h.Delete)
	})
}

type urlData struct {
	URL string `json:"url" example:"https://cdn.example.com/media/lessons/cu1a2b3c.png?c=fill&f=auto&w=320"`
}

// Upload godoc
//
//	@Summary		Upload media
//	@Description	Store an image and record it. The namespace is taken from the query, then the Referer header, then the configured default.
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file		formData	file	true	"Image file"
//	@Param			alt			formData	string	true	"Alternative text"
//	@Param			namespace	query		string	false	"Explicit namespace"
//	@Success		201			{object}	response.Envelope{data=Media}
//	@Failure		400			{object}	response.Envelope
//	@Failure		502			{object}	response.Envelope
//	@Router			/media [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	in, cleanup, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	m, err := h.svc.Upload(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, m)
}

// Replace godoc
//
//	@Summary		Replace media file
//	@Description	Upload a new file for an existing record and delete the superseded object.
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path		string	true	"Media ID"
//	@Param			file		formData	file	true	"Image file"
//	@Param			namespace	query		string	false	"Explicit namespace"
//	@Success		200			{object}	response.Envelope{data=Media}
//	@Failure		400			{object}	response.Envelope
//	@Failure		404			{object}	response.Envelope
//	@Failure		502			{object}	response.Envelope
//	@Router			/media/{id}/file [put]
func (h *Handler) Replace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, cleanup, ok := h.readUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	// A superseded object that could not be deleted is already logged by the
	// service; the record itself was replaced.
	m, err := h.svc.Replace(r.Context(), id, in)
	var sup *SupersededError
	if err != nil && !errors.As(err, &sup) {
		h.writeError(w, err)
		return
	}
	response.OK(w, m)
}

// Get godoc
//
//	@Summary		Get media
//	@Tags			media
//	@Produce		json
//	@Param			id	path		string	true	"Media ID"
//	@Success		200	{object}	response.Envelope{data=Media}
//	@Failure		404	{object}	response.Envelope
//	@Router			/media/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	m, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, m)
}

// URL godoc
//
//	@Summary		Derive media URL
//	@Description	Returns the stable URL of the file, optionally transformed.
//	@Tags			media
//	@Produce		json
//	@Param			id		path		string	true	"Media ID"
//	@Param			width	query		int		false	"Width in pixels"
//	@Param			height	query		int		false	"Height in pixels"
//	@Param			crop	query		string	false	"Crop mode"	Enums(fill, fit, limit, pad, scale, crop, thumb)
//	@Param			format	query		string	false	"Output format"	Enums(auto, jpg, png, webp, avif, gif)
//	@Success		200		{object}	response.Envelope{data=urlData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/media/{id}/url [get]
func (h *Handler) URL(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	v, err := variantFromQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}
	u, err := h.svc.URL(r.Context(), id, v)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, urlData{URL: u})
}

// Delete godoc
//
//	@Summary		Delete media
//	@Description	Delete the remote object and then the record. A failed remote delete keeps the record.
//	@Tags			media
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Media ID"
//	@Success		204
//	@Failure		404	{object}	response.Envelope
//	@Failure		502	{object}	response.Envelope
//	@Router			/media/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	response.NoContent(w)
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (UploadInput, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return UploadInput{}, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return UploadInput{}, nil, false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniff(file)
	}

	in := UploadInput{
		Alt:         r.FormValue("alt"),
		Namespace:   r.URL.Query().Get("namespace"),
		Origin:      r.Referer(),
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	}
	cleanup := func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}
	return in, cleanup, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		upErr  *storage.UploadError
		delErr *storage.DeleteError
	)
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, storage.ErrInvalidVariant), errors.Is(err, storage.ErrInvalidNamespace),
		errors.Is(err, storage.ErrEmptyUpload):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "media not found")
	case errors.Is(err, ErrAlreadyExists):
		response.Conflict(w, "media object already recorded")
	case errors.As(err, &upErr):
		response.BadGateway(w, "upload failed: "+upErr.Message)
	case errors.As(err, &delErr):
		response.BadGateway(w, "delete failed: "+delErr.Message)
	case errors.Is(err, storage.ErrInvalidDescriptor):
		response.UnprocessableEntity(w, "media record does not address a stored object")
	default:
		h.logger.Error("media request failed", "error", err)
		response.InternalError(w)
	}
}

// sniff detects the content type from the first bytes of f and rewinds it.
func sniff(f multipart.File) string {
	buf := make([]byte, 512)
	n, _ := io.ReadFull(f, buf)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return ""
	}
	return http.DetectContentType(buf[:n])
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid media id")
		return "", false
	}
	return id.String(), true
}

func variantFromQuery(r *http.Request) (*storage.Variant, error) {
	q := r.URL.Query()
	if q.Get("width") == "" && q.Get("height") == "" && q.Get("crop") == "" && q.Get("format") == "" {
		return nil, nil
	}
	v := &storage.Variant{Crop: q.Get("crop"), Format: q.Get("format")}
	var err error
	if s := q.Get("width"); s != "" {
		if v.Width, err = strconv.Atoi(s); err != nil {
			return nil, errors.New("width must be an integer")
		}
	}
	if s := q.Get("height"); s != "" {
		if v.Height, err = strconv.Atoi(s); err != nil {
			return nil, errors.New("height must be an integer")
		}
	}
	return v, nil
}
