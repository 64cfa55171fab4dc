// Package guard реализует проверки перед переходом по маршруту:
// guard-ы ролей и проверку подписки преподавателя.
package guard

import (
	"context"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Адреса перенаправлений.
const (
	LoginPath        = "/login"
	SubscriptionPath = "/instructor/subscription"
)

// MsgSubscriptionRequired сообщение при переходе на страницу оформления подписки.
const MsgSubscriptionRequired = "An active subscription is required to access this page."

// DefaultSubscriptionTimeout ограничение на запрос подписки, если не задано в конфиге.
const DefaultSubscriptionTimeout = 5 * time.Second

// Session текущая сессия, которую читают guard-ы.
type Session interface {
	IsAuthenticated() bool
	User() *models.User
}

// Guard проверка маршрута.
type Guard interface {
	Check(ctx context.Context, target string) models.Decision
}

// LoginRedirect адрес входа с возвратом на target.
func LoginRedirect(target string) string {
	return withReturnURL(LoginPath, target)
}

// SubscriptionRedirect адрес оформления подписки с возвратом на target.
func SubscriptionRedirect(target string) string {
	return withReturnURL(SubscriptionPath, target)
}

func withReturnURL(path, target string) string {
	if target == "" {
		return path
	}
	return path + "?returnUrl=" + url.QueryEscape(target)
}

// RoleGuard пропускает только роли из Allowed.
type RoleGuard struct {
	Name    string
	Allowed []models.Role
	session Session
	log     *slog.Logger
}

// NewRoleGuard создаёт guard с произвольным набором ролей.
func NewRoleGuard(name string, session Session, log *slog.Logger, allowed ...models.Role) *RoleGuard {
	return &RoleGuard{
		Name:    name,
		Allowed: allowed,
		session: session,
		log:     log.With(slog.String("guard", name)),
	}
}

// AdminGuard пропускает только администратора.
func AdminGuard(session Session, log *slog.Logger) *RoleGuard {
	return NewRoleGuard("admin", session, log, models.RoleAdmin)
}

// InstructorGuard пропускает преподавателя и администратора.
func InstructorGuard(session Session, log *slog.Logger) *RoleGuard {
	return NewRoleGuard("instructor", session, log, models.RoleInstructor, models.RoleAdmin)
}

// StudentGuard пропускает студента и администратора.
func StudentGuard(session Session, log *slog.Logger) *RoleGuard {
	return NewRoleGuard("student", session, log, models.RoleStudent, models.RoleAdmin)
}

// Check без сессии отправляет на вход, с чужой ролью на домашнюю
// страницу этой роли.
func (g *RoleGuard) Check(_ context.Context, target string) models.Decision {
	if !g.session.IsAuthenticated() {
		g.log.Debug("no session, redirecting to login", slog.String("target", target))
		return models.Redirect(LoginRedirect(target), "")
	}
	user := g.session.User()
	if user == nil || !user.Role.Valid() {
		g.log.Warn("session has no usable role, redirecting to login", slog.String("target", target))
		return models.Redirect(LoginRedirect(target), "")
	}
	if !g.allows(user.Role) {
		g.log.Debug("role not allowed",
			slog.String("role", user.Role.String()),
			slog.String("target", target),
		)
		return models.Redirect(user.Role.Home(), "")
	}
	return models.Allowed()
}

// allows сравнивает по нормализованной роли; значение повторно
// проходит через ParseRole, так что код "0" и имя "Admin" равноценны.
func (g *RoleGuard) allows(role models.Role) bool {
	return slices.Contains(g.Allowed, models.ParseRole(role))
}

// SubscriptionLookup источник подписки преподавателя.
type SubscriptionLookup interface {
	GetInstructorSubscription(ctx context.Context, instructorID string) (*models.Subscription, error)
}

// SubscriptionGate пропускает преподавателя только с активной подпиской.
// Для остальных ролей запрос не выполняется.
type SubscriptionGate struct {
	session Session
	lookup  SubscriptionLookup
	timeout time.Duration
	log     *slog.Logger
}

// NewSubscriptionGate создаёт SubscriptionGate. timeout <= 0 заменяется
// на DefaultSubscriptionTimeout.
func NewSubscriptionGate(session Session, lookup SubscriptionLookup, timeout time.Duration, log *slog.Logger) *SubscriptionGate {
	if timeout <= 0 {
		timeout = DefaultSubscriptionTimeout
	}
	return &SubscriptionGate{
		session: session,
		lookup:  lookup,
		timeout: timeout,
		log:     log.With(slog.String("guard", "subscription")),
	}
}

// Check отсутствие подписки, 404, ошибка и таймаут одинаково ведут на
// страницу оформления подписки.
func (g *SubscriptionGate) Check(ctx context.Context, target string) models.Decision {
	user := g.session.User()
	if user == nil || user.Role != models.RoleInstructor {
		return models.Allowed()
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	sub, err := g.lookup.GetInstructorSubscription(ctx, user.UserID)
	switch {
	case err != nil:
		g.log.Warn("subscription lookup failed, denying access",
			slog.String("instructor_id", user.UserID),
			sl.Err(err),
		)
	case sub == nil || !sub.IsActive:
		g.log.Info("no active subscription", slog.String("instructor_id", user.UserID))
	default:
		return models.Allowed()
	}
	return models.Redirect(SubscriptionRedirect(target), MsgSubscriptionRequired)
}
