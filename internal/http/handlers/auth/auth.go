// Package auth реализует HTTP-обработчики /api/auth/* dev-бэкенда:
// вход, регистрацию, подтверждение почты, ротацию токенов, выход,
// смену и сброс пароля.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lms-portal/internal/http/handlers"
	"github.com/magabrotheeeer/lms-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-portal/internal/http/response"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/lib/validate"
	"github.com/magabrotheeeer/lms-portal/internal/models"
	accounts "github.com/magabrotheeeer/lms-portal/internal/services/accounts"
)

// Service описывает бизнес-логику аутентификации.
type Service interface {
	Register(ctx context.Context, details models.RegisterDetails) (*models.Account, error)
	VerifyEmail(ctx context.Context, userID, code string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password, deviceID string) (*accounts.AuthResult, error)
	Refresh(ctx context.Context, token, deviceID string) (*accounts.AuthResult, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error
}

// SessionResponse ответ входа и обновления токенов.
type SessionResponse struct {
	UserID       string      `json:"userId"`
	FullName     string      `json:"fullName"`
	Email        string      `json:"email"`
	Role         models.Role `json:"role"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	ExpiresAt    time.Time   `json:"expiresAt"`
}

// RegisterResponse ответ регистрации. Токены не выдаются до подтверждения почты.
type RegisterResponse struct {
	UserID               string      `json:"userId"`
	FullName             string      `json:"fullName"`
	Email                string      `json:"email"`
	Role                 models.Role `json:"role"`
	RequiresVerification bool        `json:"requiresVerification"`
}

// MessageResponse ответ с текстом для пользователя.
type MessageResponse struct {
	Message string `json:"message"`
}

// Handler обрабатывает HTTP-запросы аутентификации.
type Handler struct {
	log      *slog.Logger
	svc      Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, svc Service) *Handler {
	return &Handler{
		log:      log,
		svc:      svc,
		validate: validate.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := handlers.StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", status), sl.Err(err))
	}
	response.WriteError(w, r, status, msg)
}

func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, log *slog.Logger, v any) bool {
	if err := handlers.DecodeJSON(r, v); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.ValidationError(err))
		return false
	}
	return true
}

func sessionResponse(res *accounts.AuthResult) SessionResponse {
	return SessionResponse{
		UserID:       res.Account.ID,
		FullName:     res.Account.FullName,
		Email:        res.Account.Email,
		Role:         res.Account.Role,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
	}
}

// Login POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Login")

	var req models.Credentials
	if !h.decodeAndValidate(w, r, log, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password, r.Header.Get("X-Device-Id"))
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("login success", slog.String("user_id", res.Account.ID))
	render.JSON(w, r, response.OKWithData(sessionResponse(res)))
}

// Register POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Register")

	var req models.RegisterDetails
	if !h.decodeAndValidate(w, r, log, &req) {
		return
	}
	acc, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(RegisterResponse{
		UserID:               acc.ID,
		FullName:             acc.FullName,
		Email:                acc.Email,
		Role:                 acc.Role,
		RequiresVerification: !acc.IsVerified,
	}))
}

// VerifyEmail POST /api/auth/verify-email?userId=&code=.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.VerifyEmail")

	userID := r.URL.Query().Get("userId")
	code := r.URL.Query().Get("code")
	if userID == "" || code == "" {
		response.WriteError(w, r, http.StatusBadRequest, "userId and code are required")
		return
	}
	if err := h.svc.VerifyEmail(r.Context(), userID, code); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(MessageResponse{Message: "Email verified"}))
}

// ResendVerification POST /api/auth/resend-verification, тело голая строка с почтой.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.ResendVerification")

	email, err := handlers.DecodeBareString(r, "email")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	if err := h.svc.ResendVerification(r.Context(), email); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(MessageResponse{Message: "Verification code sent"}))
}

// RefreshToken POST /api/auth/refresh-token, тело голая строка с refresh-токеном.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.RefreshToken")

	token, err := handlers.DecodeBareString(r, "refreshToken")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "refresh token is required")
		return
	}
	res, err := h.svc.Refresh(r.Context(), token, r.Header.Get("X-Device-Id"))
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(sessionResponse(res)))
}

// Logout POST /api/auth/logout, тело голая строка с refresh-токеном.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Logout")

	token, err := handlers.DecodeBareString(r, "refreshToken")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "refresh token is required")
		return
	}
	if err := h.svc.Logout(r.Context(), token); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// ChangePassword POST /api/auth/change-password, только с токеном доступа.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.ChangePassword")

	userID, _, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, http.StatusUnauthorized, "user identification missing")
		return
	}
	var req models.ChangePasswordRequest
	if !h.decodeAndValidate(w, r, log, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), userID, req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(MessageResponse{Message: "Password changed"}))
}

// ForgotPassword POST /api/auth/forgot-password. Ответ не зависит от того,
// зарегистрирована ли почта.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.ForgotPassword")

	email, err := handlers.DecodeBareString(r, "email")
	if err != nil {
		response.WriteError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), email); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(MessageResponse{Message: "If the email is registered, a reset code has been sent"}))
}

// ResetPassword POST /api/auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.ResetPassword")

	var req models.ResetPasswordRequest
	if !h.decodeAndValidate(w, r, log, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(MessageResponse{Message: "Password reset"}))
}
