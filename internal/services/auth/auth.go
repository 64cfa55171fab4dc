// Package services реализует клиент аутентификации портала: вход,
// регистрацию, подтверждение почты, смену и сброс пароля, выход.
//
// Register и CreateUser ходят в один и тот же endpoint, но только Register
// записывает полученную сессию в хранилище: CreateUser используется
// администратором, который остаётся в своей сессии.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/lib/validate"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Сообщения для пользователя, когда сервер не прислал своего.
const (
	MsgLoginFailed    = "Login failed. Please check your credentials."
	MsgInvalidCode    = "Invalid verification code. Please try again."
	MsgRegisterFailed = "Registration failed. Please try again."
	MsgGenericFailure = "Something went wrong. Please try again later."
)

// Endpoints бэкенда.
const (
	pathLogin              = "/api/auth/login"
	pathRegister           = "/api/auth/register"
	pathVerifyEmail        = "/api/auth/verify-email"
	pathResendVerification = "/api/auth/resend-verification"
	pathChangePassword     = "/api/auth/change-password"
	pathForgotPassword     = "/api/auth/forgot-password"
	pathResetPassword      = "/api/auth/reset-password"
	pathLogout             = "/api/auth/logout"
	pathRefreshToken       = "/api/auth/refresh-token"
)

// Transport выполняет JSON-запросы к бэкенду.
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error)
}

// SessionStore хранилище сессии, в которое пишет клиент.
type SessionStore interface {
	Save(sess models.Session)
	RefreshToken() string
	User() *models.User
	ClearAll()
}

// AuthService клиент аутентификации.
type AuthService struct {
	transport Transport
	store     SessionStore
	validate  *validator.Validate
	log       *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(transport Transport, store SessionStore, log *slog.Logger) *AuthService {
	return &AuthService{
		transport: transport,
		store:     store,
		validate:  validate.New(),
		log:       log.With(slog.String("component", "auth.Service")),
	}
}

func (s *AuthService) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return apperr.Validation(validate.Message(err))
	}
	return nil
}

// Login входит по почте и паролю и сохраняет сессию.
// Отказ бэкенда возвращается как apperr.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	const op = "auth.Login"
	if err := s.check(creds); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	body, err := s.transport.Do(ctx, http.MethodPost, pathLogin, nil, creds)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindRejected {
			err = apperr.WithKind(err, apperr.KindInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := parseSession(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sess.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.New(apperr.KindServer, 0, "", errors.New("response has no access token")))
	}
	if sess.Email == "" {
		sess.Email = creds.Email
	}

	s.store.Save(*sess)
	s.log.Info("logged in", slog.String("user_id", sess.UserID), slog.String("role", sess.Role.String()))
	return sess, nil
}

// Register регистрирует пользователя и, если бэкенд выдал токены,
// сохраняет сессию. Без токена (нужна проверка почты) сессия не
// сохраняется и возвращается с пустым AccessToken.
func (s *AuthService) Register(ctx context.Context, details models.RegisterDetails) (*models.Session, error) {
	const op = "auth.Register"
	sess, err := s.register(ctx, details)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sess.AccessToken != "" {
		s.store.Save(*sess)
		s.log.Info("registered and logged in", slog.String("user_id", sess.UserID))
	} else {
		s.log.Info("registered, verification pending", slog.String("user_id", sess.UserID))
	}
	return sess, nil
}

// CreateUser создаёт пользователя от имени администратора. Сессия
// вызывающего не меняется.
func (s *AuthService) CreateUser(ctx context.Context, details models.RegisterDetails) (*models.PendingRegistration, error) {
	const op = "auth.CreateUser"
	sess, err := s.register(ctx, details)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sess.UserID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.New(apperr.KindServer, 0, "", errors.New("response has no user id")))
	}
	return &models.PendingRegistration{
		PendingUserID: sess.UserID,
		PendingEmail:  sess.Email,
		Step:          models.StepVerification,
	}, nil
}

func (s *AuthService) register(ctx context.Context, details models.RegisterDetails) (*models.Session, error) {
	if err := s.check(details); err != nil {
		return nil, err
	}
	body, err := s.transport.Do(ctx, http.MethodPost, pathRegister, nil, details)
	if err != nil {
		return nil, err
	}
	sess, err := parseSession(body)
	if err != nil {
		return nil, err
	}
	if sess.Email == "" {
		sess.Email = details.Email
	}
	if sess.FullName == "" {
		sess.FullName = details.FullName
	}
	if !sess.Role.Valid() && details.Role != nil {
		sess.Role = models.ParseRole(*details.Role)
	}
	return sess, nil
}

// VerifyEmail подтверждает почту кодом. Отказ бэкенда возвращается
// как apperr.ErrInvalidCode. Сессию не меняет.
func (s *AuthService) VerifyEmail(ctx context.Context, userID, code string) error {
	const op = "auth.VerifyEmail"
	if userID == "" || code == "" {
		return fmt.Errorf("%s: %w", op, apperr.Validation("user id and code are required"))
	}
	q := url.Values{}
	q.Set("userId", userID)
	q.Set("code", code)
	if _, err := s.transport.Do(ctx, http.MethodPost, pathVerifyEmail, q, nil); err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindRejected, apperr.KindNotFound:
			err = apperr.WithKind(err, apperr.KindInvalidCode)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResendVerification повторно отправляет код на почту.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	const op = "auth.ResendVerification"
	if email == "" {
		return fmt.Errorf("%s: %w", op, apperr.Validation("email is required"))
	}
	if _, err := s.transport.Do(ctx, http.MethodPost, pathResendVerification, nil, email); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ChangePassword меняет пароль текущего пользователя. Токены не
// перевыпускаются, другие сессии остаются активными.
func (s *AuthService) ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error {
	const op = "auth.ChangePassword"
	if err := s.check(req); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.transport.Do(ctx, http.MethodPost, pathChangePassword, nil, req); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ForgotPassword запрашивает письмо для сброса пароля.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"
	if email == "" {
		return fmt.Errorf("%s: %w", op, apperr.Validation("email is required"))
	}
	if _, err := s.transport.Do(ctx, http.MethodPost, pathForgotPassword, nil, map[string]string{"email": email}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetPassword задаёт новый пароль по коду из письма.
func (s *AuthService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	const op = "auth.ResetPassword"
	if err := s.check(req); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.transport.Do(ctx, http.MethodPost, pathResetPassword, nil, req); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Logout отзывает refresh-токен на бэкенде и очищает локальную сессию.
// Локальная сессия очищается всегда, даже если отзыв не удался; ошибка
// отзыва возвращается только для информации.
func (s *AuthService) Logout(ctx context.Context) error {
	const op = "auth.Logout"
	defer s.store.ClearAll()

	refresh := s.store.RefreshToken()
	if refresh == "" {
		return nil
	}
	if _, err := s.transport.Do(ctx, http.MethodPost, pathLogout, nil, refresh); err != nil {
		s.log.Warn("remote logout failed, clearing local session anyway", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("logged out")
	return nil
}

// Refresh обменивает refresh-токен на новую пару и перезаписывает сессию.
// Поля пользователя, которых нет в ответе, берутся из сохранённой записи.
func (s *AuthService) Refresh(ctx context.Context) (*models.Session, error) {
	const op = "auth.Refresh"
	refresh := s.store.RefreshToken()
	if refresh == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.New(apperr.KindRejected, 0, "no refresh token, please log in again", nil))
	}
	body, err := s.transport.Do(ctx, http.MethodPost, pathRefreshToken, nil, refresh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sess, err := parseSession(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sess.AccessToken == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.New(apperr.KindServer, 0, "", errors.New("response has no access token")))
	}
	if sess.RefreshToken == "" {
		sess.RefreshToken = refresh
	}
	if u := s.store.User(); u != nil {
		if sess.UserID == "" {
			sess.UserID = u.UserID
		}
		if sess.FullName == "" {
			sess.FullName = u.FullName
		}
		if sess.Email == "" {
			sess.Email = u.Email
		}
		if !sess.Role.Valid() {
			sess.Role = u.Role
		}
	}
	s.store.Save(*sess)
	return sess, nil
}
