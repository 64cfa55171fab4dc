// Package users реализует HTTP-обработчики /api/users dev-бэкенда.
package users

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lms-portal/internal/http/handlers"
	"github.com/magabrotheeeer/lms-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-portal/internal/http/response"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

const maxPhotoSize = 5 << 20

// Service описывает операции над пользователями.
type Service interface {
	ListUsers(ctx context.Context) ([]models.UserSummary, error)
	DeleteUser(ctx context.Context, id string) error
	UploadPhoto(ctx context.Context, id, filename string, data []byte) error
}

// Handler обрабатывает HTTP-запросы пользователей.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := handlers.StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	}
	response.WriteError(w, r, status, msg)
}

// List GET /api/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "handlers.users.List"), slog.String("request_id", middleware.GetReqID(r.Context())))

	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(users))
}

// Delete DELETE /api/users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "handlers.users.Delete"), slog.String("request_id", middleware.GetReqID(r.Context())))

	id := chi.URLParam(r, "id")
	if err := h.svc.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("user deleted", slog.String("user_id", id))
	render.JSON(w, r, response.OK())
}

// UploadPhoto POST /api/users/{id}/photo, файл в поле photo. Загружать
// может сам пользователь или администратор.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "handlers.users.UploadPhoto"), slog.String("request_id", middleware.GetReqID(r.Context())))

	id := chi.URLParam(r, "id")
	uid, role, ok := middlewarectx.UserFromContext(r.Context())
	if !ok || (uid != id && role != models.RoleAdmin) {
		response.WriteError(w, r, http.StatusForbidden, "access denied")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	file, header, err := r.FormFile("photo")
	if err != nil {
		log.Info("photo field missing", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "failed to read photo")
		return
	}
	if err := h.svc.UploadPhoto(r.Context(), id, filepath.Base(header.Filename), data); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK())
}
