package resource

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/studyhub/content-service/internal/outline"
	"github.com/studyhub/content-service/internal/response"
)

const maxDocumentSize = 4 << 20

// Handler holds HTTP handlers for resource endpoints.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler creates a new resource Handler.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the resource routes. Mutations sit behind requireAuth.
func (h *Handler) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/{id}", h.Get)
	r.Get("/{id}/mindmap", h.Mindmap)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// Convert godoc
//
//	@Summary		Convert a document to an outline
//	@Description	Builds the mindmap outline of a Lexical editor state without storing anything.
//	@Tags			outline
//	@Accept			json
//	@Produce		json
//	@Param			body	body		object	true	"Lexical editor state"
//	@Success		200		{object}	response.Envelope{data=[]outline.Outline}
//	@Failure		400		{object}	response.Envelope
//	@Router			/outline [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		response.BadRequest(w, "could not read request body")
		return
	}
	forest, err := h.svc.Convert(data)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, forest)
}

// Create godoc
//
//	@Summary		Create resource
//	@Tags			resources
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		Input	true	"Resource fields"
//	@Success		201		{object}	response.Envelope{data=Resource}
//	@Failure		400		{object}	response.Envelope
//	@Router			/resources [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, res)
}

// Get godoc
//
//	@Summary		Get resource
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource ID"
//	@Success		200	{object}	response.Envelope{data=Resource}
//	@Failure		404	{object}	response.Envelope
//	@Router			/resources/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, res)
}

// Mindmap godoc
//
//	@Summary		Get resource outline
//	@Tags			resources
//	@Produce		json
//	@Param			id	path		string	true	"Resource ID"
//	@Success		200	{object}	response.Envelope{data=[]outline.Outline}
//	@Failure		404	{object}	response.Envelope
//	@Router			/resources/{id}/mindmap [get]
func (h *Handler) Mindmap(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	forest, err := h.svc.Outline(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if forest == nil {
		forest = []*outline.Outline{}
	}
	response.OK(w, forest)
}

// Update godoc
//
//	@Summary		Update resource
//	@Tags			resources
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Resource ID"
//	@Param			body	body		Input	true	"Resource fields"
//	@Success		200		{object}	response.Envelope{data=Resource}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/resources/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, res)
}

// Delete godoc
//
//	@Summary		Delete resource
//	@Tags			resources
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Resource ID"
//	@Success		204
//	@Failure		404	{object}	response.Envelope
//	@Router			/resources/{id} [delete]
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

func decodeInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var in Input
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentSize)).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return Input{}, false
	}
	return in, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "resource not found")
	default:
		h.logger.Error("resource request failed", "error", err)
		response.InternalError(w)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid resource id")
		return "", false
	}
	return id.String(), true
}
