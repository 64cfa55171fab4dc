// Package subscription реализует HTTP-обработчики подписок преподавателей.
package subscription

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lms-portal/internal/http/handlers"
	"github.com/magabrotheeeer/lms-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-portal/internal/http/response"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Service описывает операции над подписками.
type Service interface {
	GetSubscription(ctx context.Context, instructorID string) (*models.Subscription, error)
	ActivateSubscription(ctx context.Context, instructorID, plan string, active bool, endDate *time.Time) (*models.Subscription, error)
}

// ActivateRequest тело PUT /api/subscriptions/instructor/{id}.
type ActivateRequest struct {
	PlanName string     `json:"planName"`
	IsActive *bool      `json:"isActive"`
	EndDate  *time.Time `json:"endDate"`
}

// Handler обрабатывает HTTP-запросы подписок.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

// allowed пускает самого преподавателя и администратора.
func allowed(r *http.Request, instructorID string) bool {
	uid, role, ok := middlewarectx.UserFromContext(r.Context())
	return ok && (role == models.RoleAdmin || (role == models.RoleInstructor && uid == instructorID))
}

// Get GET /api/subscriptions/instructor/{id}. 404 означает «подписки нет».
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "handlers.subscription.Get"), slog.String("request_id", middleware.GetReqID(r.Context())))

	id := chi.URLParam(r, "id")
	if !allowed(r, id) {
		response.WriteError(w, r, http.StatusForbidden, "access denied")
		return
	}
	sub, err := h.svc.GetSubscription(r.Context(), id)
	if err != nil {
		status, msg := handlers.StatusFor(err)
		if status == http.StatusNotFound {
			msg = "subscription not found"
		} else {
			log.Error("failed to get subscription", sl.Err(err))
		}
		response.WriteError(w, r, status, msg)
		return
	}
	render.JSON(w, r, response.OKWithData(sub))
}

// Activate PUT /api/subscriptions/instructor/{id}. Без isActive подписка
// включается.
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "handlers.subscription.Activate"), slog.String("request_id", middleware.GetReqID(r.Context())))

	id := chi.URLParam(r, "id")
	if !allowed(r, id) {
		response.WriteError(w, r, http.StatusForbidden, "access denied")
		return
	}
	var req ActivateRequest
	if r.ContentLength != 0 {
		if err := handlers.DecodeJSON(r, &req); err != nil {
			response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	sub, err := h.svc.ActivateSubscription(r.Context(), id, req.PlanName, active, req.EndDate)
	if err != nil {
		status, msg := handlers.StatusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("failed to activate subscription", sl.Err(err))
		}
		response.WriteError(w, r, status, msg)
		return
	}
	render.JSON(w, r, response.OKWithData(sub))
}
