// Package services реализует серверную часть dev-бэкенда LMS: учётные
// записи, подтверждение почты, выпуск и ротацию токенов, сброс пароля,
// подписки преподавателей и чтение каталога для админки.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/lms-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-portal/internal/lib/password"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/models"
	"github.com/magabrotheeeer/lms-portal/internal/notify"
	"github.com/magabrotheeeer/lms-portal/internal/storage"
)

// Ошибки сервиса. Хендлеры переводят их в HTTP-статусы.
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotVerified         = errors.New("email is not verified")
	ErrInvalidCode         = errors.New("invalid verification code")
	ErrAlreadyVerified     = errors.New("email is already verified")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrWrongPassword       = errors.New("current password is incorrect")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrNotInstructor       = errors.New("user is not an instructor")
)

const (
	codeLength    = 6
	codeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	resetTokenTTL = time.Hour
)

// Repository хранилище dev-бэкенда.
type Repository interface {
	CreateAccount(ctx context.Context, acc models.Account) error
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	AccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateAccount(ctx context.Context, acc models.Account) error
	DeleteAccount(ctx context.Context, id string) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	SavePhoto(ctx context.Context, userID, filename string, data []byte) error

	SaveRefreshToken(ctx context.Context, t models.RefreshToken) error
	RefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error

	SubscriptionByInstructor(ctx context.Context, instructorID string) (*models.Subscription, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) error

	DashboardStats(ctx context.Context) (*models.DashboardStats, error)
	ListCourses(ctx context.Context) ([]models.CourseSummary, error)
	ListTickets(ctx context.Context) ([]models.Ticket, error)
}

// Notifier доставляет письма с кодами. По умолчанию письма пишутся в лог.
type Notifier interface {
	Notify(ctx context.Context, msg models.Notification) error
}

// CodeGenerator выдаёт код подтверждения или сброса.
type CodeGenerator func() (string, error)

// RandomCode код из 6 заглавных латинских букв и цифр.
func RandomCode() (string, error) {
	const op = "accounts.RandomCode"
	limit := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	for range codeLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// AuthResult выданная пара токенов и владелец.
type AuthResult struct {
	Account      models.Account
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AccountsService бизнес-логика dev-бэкенда.
type AccountsService struct {
	repo       Repository
	maker      jwt.Maker
	notifier   Notifier
	code       CodeGenerator
	refreshTTL time.Duration
	now        func() time.Time
	log        *slog.Logger
}

// Option настраивает AccountsService.
type Option func(*AccountsService)

// WithNotifier задаёт доставку писем.
func WithNotifier(n Notifier) Option {
	return func(s *AccountsService) {
		s.notifier = n
	}
}

// WithCodeGenerator подменяет генератор кодов, например на фиксированный в тестах.
func WithCodeGenerator(g CodeGenerator) Option {
	return func(s *AccountsService) {
		s.code = g
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *AccountsService) {
		s.now = now
	}
}

// NewAccountsService создает новый экземпляр AccountsService.
func NewAccountsService(repo Repository, maker jwt.Maker, refreshTTL time.Duration, log *slog.Logger, opts ...Option) *AccountsService {
	log = log.With(slog.String("component", "accounts.Service"))
	s := &AccountsService{
		repo:       repo,
		maker:      maker,
		notifier:   notify.NewLogNotifier(log),
		code:       RandomCode,
		refreshTTL: refreshTTL,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AccountsService) sendCode(ctx context.Context, kind models.NotificationKind, acc models.Account, code string) {
	err := s.notifier.Notify(ctx, models.Notification{
		Kind:     kind,
		UserID:   acc.ID,
		Email:    acc.Email,
		FullName: acc.FullName,
		Code:     code,
	})
	if err != nil {
		s.log.Error("failed to send notification", slog.String("kind", string(kind)), sl.Err(err))
	}
}

// Register создаёт неподтверждённую учётную запись и отправляет код
// подтверждения на почту.
func (s *AccountsService) Register(ctx context.Context, details models.RegisterDetails) (*models.Account, error) {
	const op = "accounts.Register"
	hash, err := password.Hash(details.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	code, err := s.code()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	role := models.RoleUnknown
	if details.Role != nil {
		role = models.ParseRole(*details.Role)
	}
	acc := models.Account{
		ID:               uuid.NewString(),
		FullName:         strings.TrimSpace(details.FullName),
		Email:            strings.TrimSpace(details.Email),
		PasswordHash:     hash,
		Role:             role,
		PhoneNumber:      details.PhoneNumber,
		Bio:              details.Bio,
		VerificationCode: code,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account registered", slog.String("user_id", acc.ID), slog.String("role", acc.Role.String()))
	s.sendCode(ctx, models.NotifyVerification, acc, code)
	return &acc, nil
}

// SeedAdmin создаёт подтверждённого администратора, если почта свободна.
func (s *AccountsService) SeedAdmin(ctx context.Context, fullName, email, rawPassword string) error {
	const op = "accounts.SeedAdmin"
	if _, err := s.repo.AccountByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}
	hash, err := password.Hash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	acc := models.Account{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsVerified:   true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("admin account seeded", slog.String("email", email))
	return nil
}

// VerifyEmail подтверждает почту кодом. Код сравнивается без учёта регистра.
func (s *AccountsService) VerifyEmail(ctx context.Context, userID, code string) error {
	const op = "accounts.VerifyEmail"
	acc, err := s.repo.AccountByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if acc.IsVerified {
		return nil
	}
	code = strings.TrimSpace(code)
	if code == "" || !strings.EqualFold(code, acc.VerificationCode) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCode)
	}
	acc.IsVerified = true
	acc.VerificationCode = ""
	if err := s.repo.UpdateAccount(ctx, *acc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("email verified", slog.String("user_id", acc.ID))
	return nil
}

// ResendVerification выпускает новый код и отправляет его повторно.
func (s *AccountsService) ResendVerification(ctx context.Context, email string) error {
	const op = "accounts.ResendVerification"
	acc, err := s.repo.AccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if acc.IsVerified {
		return fmt.Errorf("%s: %w", op, ErrAlreadyVerified)
	}
	code, err := s.code()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	acc.VerificationCode = code
	if err := s.repo.UpdateAccount(ctx, *acc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.sendCode(ctx, models.NotifyVerification, *acc, code)
	return nil
}

// Login проверяет пароль и выпускает пару токенов для устройства.
func (s *AccountsService) Login(ctx context.Context, email, rawPassword, deviceID string) (*AuthResult, error) {
	const op = "accounts.Login"
	acc, err := s.repo.AccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Compare(acc.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !acc.IsVerified {
		return nil, fmt.Errorf("%s: %w", op, ErrNotVerified)
	}
	res, err := s.issue(ctx, *acc, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user logged in", slog.String("user_id", acc.ID), slog.String("device_id", deviceID))
	return res, nil
}

func (s *AccountsService) issue(ctx context.Context, acc models.Account, deviceID string) (*AuthResult, error) {
	access, expiresAt, err := s.maker.GenerateToken(acc.ID, acc.Email, acc.Role.String())
	if err != nil {
		return nil, err
	}
	refresh := models.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    acc.ID,
		DeviceID:  deviceID,
		ExpiresAt: s.now().Add(s.refreshTTL).UTC(),
	}
	if err := s.repo.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, err
	}
	return &AuthResult{
		Account:      acc,
		AccessToken:  access,
		RefreshToken: refresh.Token,
		ExpiresAt:    expiresAt.UTC(),
	}, nil
}

// Refresh обменивает refresh-токен на новую пару. Старый токен отзывается.
func (s *AccountsService) Refresh(ctx context.Context, token, deviceID string) (*AuthResult, error) {
	const op = "accounts.Refresh"
	stored, err := s.repo.RefreshToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteRefreshToken(ctx, stored.Token); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !s.now().Before(stored.ExpiresAt) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}
	acc, err := s.repo.AccountByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if deviceID == "" {
		deviceID = stored.DeviceID
	}
	res, err := s.issue(ctx, *acc, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// Logout отзывает refresh-токен. Неизвестный токен не ошибка.
func (s *AccountsService) Logout(ctx context.Context, token string) error {
	const op = "accounts.Logout"
	if err := s.repo.DeleteRefreshToken(ctx, strings.TrimSpace(token)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ChangePassword меняет пароль после проверки текущего.
func (s *AccountsService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	const op = "accounts.ChangePassword"
	acc, err := s.repo.AccountByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.Compare(acc.PasswordHash, req.CurrentPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return fmt.Errorf("%s: %w", op, ErrWrongPassword)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	acc.PasswordHash = hash
	if err := s.repo.UpdateAccount(ctx, *acc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password changed", slog.String("user_id", acc.ID))
	return nil
}

// ForgotPassword выпускает код сброса на час. Для неизвестной почты молча
// ничего не делает, чтобы не раскрывать зарегистрированные адреса.
func (s *AccountsService) ForgotPassword(ctx context.Context, email string) error {
	const op = "accounts.ForgotPassword"
	acc, err := s.repo.AccountByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	code, err := s.code()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	acc.ResetCode = code
	acc.ResetExpiresAt = s.now().Add(resetTokenTTL).UTC()
	if err := s.repo.UpdateAccount(ctx, *acc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.sendCode(ctx, models.NotifyPasswordReset, *acc, code)
	return nil
}

// ResetPassword задаёт новый пароль по коду сброса. Код одноразовый.
func (s *AccountsService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	const op = "accounts.ResetPassword"
	acc, err := s.repo.AccountByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidResetToken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if acc.ResetCode == "" || !strings.EqualFold(strings.TrimSpace(req.Token), acc.ResetCode) ||
		!s.now().Before(acc.ResetExpiresAt) {
		return fmt.Errorf("%s: %w", op, ErrInvalidResetToken)
	}
	hash, err := password.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	acc.PasswordHash = hash
	acc.ResetCode = ""
	acc.ResetExpiresAt = time.Time{}
	if err := s.repo.UpdateAccount(ctx, *acc); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset", slog.String("user_id", acc.ID))
	return nil
}
