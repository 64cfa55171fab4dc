// Package admin реализует чтение данных для админки dev-бэкенда.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/lms-portal/internal/http/response"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Service источник данных админки.
type Service interface {
	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	Courses(ctx context.Context) ([]models.CourseSummary, error)
	Tickets(ctx context.Context) ([]models.Ticket, error)
}

// Handler обрабатывает HTTP-запросы админки.
type Handler struct {
	log *slog.Logger
	svc Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{log: log, svc: svc}
}

func writeResult[T any](h *Handler, w http.ResponseWriter, r *http.Request, op string, load func(context.Context) (T, error)) {
	data, err := load(r.Context())
	if err != nil {
		h.log.Error("failed to load data", slog.String("op", op), sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	render.JSON(w, r, response.OKWithData(data))
}

// Dashboard GET /api/admin/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeResult(h, w, r, "handlers.admin.Dashboard", h.svc.DashboardStats)
}

// Courses GET /api/courses.
func (h *Handler) Courses(w http.ResponseWriter, r *http.Request) {
	writeResult(h, w, r, "handlers.admin.Courses", h.svc.Courses)
}

// Tickets GET /api/support/tickets.
func (h *Handler) Tickets(w http.ResponseWriter, r *http.Request) {
	writeResult(h, w, r, "handlers.admin.Tickets", h.svc.Tickets)
}
