// Package users serves the user endpoints: profile CRUD and attaching or
// detaching catalog books.
package users

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/bookshelf/backend/internal/errors"
	"github.com/bookshelf/backend/internal/models"
	"github.com/bookshelf/backend/internal/response"
)

// UserService is what the handlers need from the service layer.
type UserService interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	UpdateUser(ctx context.Context, id int64, u *models.User) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	AddBook(ctx context.Context, userID, bookID int64) (*models.User, error)
	RemoveBook(ctx context.Context, userID, bookID int64) (*models.User, error)
}

// Validator checks decoded request bodies.
type Validator interface {
	Validate(s any) error
}

// Handler holds user HTTP handlers.
type Handler struct {
	svc      UserService
	validate Validator
	logger   *slog.Logger
}

func NewHandler(svc UserService, validate Validator, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, validate: validate, logger: logger}
}

// Routes mounts the handlers under /api/users.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{userId}/book/{bookId}", h.AddBook)
	r.Delete("/{userId}/book/{bookId}", h.RemoveBook)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	response.JSON(w, http.StatusOK, users, h.logger)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	u, err := h.svc.GetUser(r.Context(), id)
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	response.JSON(w, http.StatusOK, u, h.logger)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeUser(w, r)
	if !ok {
		return
	}
	u, err := h.svc.CreateUser(r.Context(), req.User())
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	response.JSON(w, http.StatusCreated, u, h.logger)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	req, ok := h.decodeUser(w, r)
	if !ok {
		return
	}
	u, err := h.svc.UpdateUser(r.Context(), id, req.User())
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	response.JSON(w, http.StatusOK, u, h.logger)
}

// Delete answers 200 with an empty body.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) AddBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := h.pathPair(w, r)
	if !ok {
		return
	}
	u, err := h.svc.AddBook(r.Context(), userID, bookID)
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	response.JSON(w, http.StatusOK, u, h.logger)
}

func (h *Handler) RemoveBook(w http.ResponseWriter, r *http.Request) {
	userID, bookID, ok := h.pathPair(w, r)
	if !ok {
		return
	}
	u, err := h.svc.RemoveBook(r.Context(), userID, bookID)
	if err != nil {
		response.HandleError(w, err, h.logger)
		return
	}
	response.JSON(w, http.StatusOK, u, h.logger)
}

func (h *Handler) decodeUser(w http.ResponseWriter, r *http.Request) (*models.UserRequest, bool) {
	var req models.UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return nil, false
	}
	if err := h.validate.Validate(req); err != nil {
		response.HandleError(w, err, h.logger)
		return nil, false
	}
	return &req, true
}

func (h *Handler) pathPair(w http.ResponseWriter, r *http.Request) (userID, bookID int64, ok bool) {
	if userID, ok = h.pathID(w, r, "userId"); !ok {
		return 0, 0, false
	}
	if bookID, ok = h.pathID(w, r, "bookId"); !ok {
		return 0, 0, false
	}
	return userID, bookID, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		response.HandleError(w, domainerrors.Validation("Invalid "+name), h.logger)
		return 0, false
	}
	return id, true
}
