// Package devbackend собирает dev-бэкенд LMS: хранилище, сервис учётных
// записей, доставку писем и HTTP-маршруты /api/*.
package devbackend

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/lms-portal/internal/http/handlers/admin"
	"github.com/magabrotheeeer/lms-portal/internal/http/handlers/auth"
	"github.com/magabrotheeeer/lms-portal/internal/http/handlers/subscription"
	"github.com/magabrotheeeer/lms-portal/internal/http/handlers/users"
	"github.com/magabrotheeeer/lms-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-portal/internal/models"
	accounts "github.com/magabrotheeeer/lms-portal/internal/services/accounts"
)

// Deps зависимости маршрутов.
type Deps struct {
	Logger   *slog.Logger
	Service  *accounts.AccountsService
	Tokens   middlewarectx.TokenParser
	Limiter  *middlewarectx.RateLimiter
	Registry *prometheus.Registry
}

// RegisterRoutes регистрирует все маршруты dev-бэкенда.
func RegisterRoutes(r chi.Router, d Deps) {
	logger := d.Logger

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middlewarectx.MetricsMiddleware(d.Registry),
		middlewarectx.RateLimitMiddleware(logger, d.Limiter),
	)

	authHandler := auth.New(logger, d.Service)
	usersHandler := users.New(logger, d.Service)
	subHandler := subscription.New(logger, d.Service)
	adminHandler := admin.New(logger, d.Service)

	r.Route("/api", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/verify-email", authHandler.VerifyEmail)
		r.Post("/auth/resend-verification", authHandler.ResendVerification)
		r.Post("/auth/forgot-password", authHandler.ForgotPassword)
		r.Post("/auth/reset-password", authHandler.ResetPassword)
		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/refresh-token", authHandler.RefreshToken)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(d.Tokens, logger))

			r.Post("/auth/change-password", authHandler.ChangePassword)
			r.Post("/users/{id}/photo", usersHandler.UploadPhoto)
			r.Get("/subscriptions/instructor/{id}", subHandler.Get)
			r.Put("/subscriptions/instructor/{id}", subHandler.Activate)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
				r.Get("/users", usersHandler.List)
				r.Delete("/users/{id}", usersHandler.Delete)
				r.Get("/admin/dashboard", adminHandler.Dashboard)
				r.Get("/courses", adminHandler.Courses)
				r.Get("/support/tickets", adminHandler.Tickets)
			})
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
}

// NewHandler возвращает готовый http.Handler dev-бэкенда.
func NewHandler(d Deps) http.Handler {
	router := chi.NewRouter()
	RegisterRoutes(router, d)
	return router
}
