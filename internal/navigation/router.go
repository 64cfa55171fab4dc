// Package navigation сопоставляет адреса портала с цепочками guard-ов.
package navigation

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/magabrotheeeer/lms-portal/internal/config"
	"github.com/magabrotheeeer/lms-portal/internal/guard"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Route маршрут: префикс пути и guard-ы, проверяемые по порядку.
type Route struct {
	Prefix string
	Guards []guard.Guard
}

// Router таблица маршрутов. Выбирается маршрут с самым длинным
// совпадающим префиксом; неизвестные адреса открыты.
type Router struct {
	routes []Route
	log    *slog.Logger
}

// NewRouter создаёт пустую таблицу.
func NewRouter(log *slog.Logger) *Router {
	return &Router{log: log.With(slog.String("component", "navigation.Router"))}
}

// NewPortalRouter таблица портала: /admin для администратора,
// /instructor для преподавателя с активной подпиской, кроме страницы
// оформления подписки, /student для студента. Вход, регистрация и
// главная открыты.
func NewPortalRouter(sess guard.Session, lookup guard.SubscriptionLookup, cfg config.Guard, log *slog.Logger) *Router {
	admin := guard.AdminGuard(sess, log)
	instructor := guard.InstructorGuard(sess, log)
	student := guard.StudentGuard(sess, log)
	subscription := guard.NewSubscriptionGate(sess, lookup, cfg.SubscriptionTimeout, log)

	r := NewRouter(log)
	r.Handle("/")
	r.Handle("/login")
	r.Handle("/register")
	r.Handle("/admin", admin)
	r.Handle("/instructor", instructor, subscription)
	r.Handle(guard.SubscriptionPath, instructor)
	r.Handle("/student", student)
	return r
}

// Handle добавляет или заменяет маршрут.
func (r *Router) Handle(prefix string, guards ...guard.Guard) {
	prefix = normalize(prefix)
	for i := range r.routes {
		if r.routes[i].Prefix == prefix {
			r.routes[i].Guards = guards
			return
		}
	}
	r.routes = append(r.routes, Route{Prefix: prefix, Guards: guards})
}

// Match возвращает маршрут для target.
func (r *Router) Match(target string) (Route, bool) {
	p := pathOf(target)
	var (
		best  Route
		found bool
	)
	for _, route := range r.routes {
		if !hasPathPrefix(p, route.Prefix) {
			continue
		}
		if !found || len(route.Prefix) > len(best.Prefix) {
			best, found = route, true
		}
	}
	return best, found
}

// Navigate проверяет guard-ы маршрута по порядку; первое перенаправление
// побеждает, остальные guard-ы не вызываются.
func (r *Router) Navigate(ctx context.Context, target string) models.Decision {
	route, ok := r.Match(target)
	if !ok {
		return models.Allowed()
	}
	for _, g := range route.Guards {
		if d := g.Check(ctx, target); !d.Allow {
			r.log.Debug("navigation redirected",
				slog.String("target", target),
				slog.String("redirect", d.RedirectTo),
			)
			return d
		}
	}
	return models.Allowed()
}

// pathOf отрезает query и фрагмент и приводит путь к каноническому виду,
// чтобы "/student/../admin" и "//admin" проверялись как "/admin".
func pathOf(target string) string {
	p, _, _ := strings.Cut(target, "?")
	p, _, _ = strings.Cut(p, "#")
	return normalize(path.Clean("/" + p))
}

func normalize(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func hasPathPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
