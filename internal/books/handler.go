// Package books serves the book catalog and cover images.
package books

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/bookshelf/backend/internal/errors"
	"github.com/bookshelf/backend/internal/models"
	"github.com/bookshelf/backend/internal/response"
)

// MaxCoverBytes caps the size of an uploaded cover image.
const MaxCoverBytes = 5 << 20

// Validator checks decoded request bodies.
type Validator interface {
	Validate(s any) error
}

// Handler holds book HTTP handlers.
type Handler struct {
	svc      *Service
	validate Validator
	logger   *slog.Logger
}

func NewHandler(svc *Service, validate Validator, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validate, logger: logger}
}

// Routes mounts the handlers under /api/books.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/cover", h.PutCover)
	r.Get("/{id}/cover", h.GetCover)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.svc.ListBooks(r.Context())
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	if books == nil {
		books = []models.Book{}
	}
	response.JSON(w, http.StatusOK, books, h.logger)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	book, err := h.svc.GetBook(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	response.JSON(w, http.StatusOK, book, h.logger)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}
	if err := h.validate.Validate(req); err != nil {
		response.HandleError(w, err, h.logger)
		return
	}

	book, err := h.svc.CreateBook(r.Context(), req.Book())
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	response.JSON(w, http.StatusCreated, book, h.logger)
}

// PutCover takes the raw image as the request body.
func (h *Handler) PutCover(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		response.Error(w, http.StatusBadRequest, "Cover must be an image", h.logger)
		return
	}

	// Buffer the body so MinIO gets an exact size and oversized uploads are
	// rejected before anything is stored.
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxCoverBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "Cover exceeds 5 MiB", h.logger)
			return
		}
		response.Error(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}
	if len(data) == 0 {
		response.Error(w, http.StatusBadRequest, "Cover is empty", h.logger)
		return
	}

	if err := h.svc.SetCover(r.Context(), id, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rc, contentType, err := h.svc.GetCover(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("Cover stream interrupted", "book_id", id, "error", err)
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.HandleError(w, domainerrors.Validation("Invalid id"), h.logger)
		return 0, false
	}
	return id, true
}
