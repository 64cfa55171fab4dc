// Package middlewarectx содержит HTTP middleware dev-бэкенда.
//
// JWTMiddleware проверяет bearer-токен в заголовке Authorization и кладёт
// в контекст идентификатор, почту и роль пользователя. RequireRole
// пропускает только перечисленные роли.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/lms-portal/internal/http/response"
	"github.com/magabrotheeeer/lms-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID ключ идентификатора пользователя в контексте
	UserUID Key = "user_uid"
	// Email ключ почты пользователя в контексте
	Email Key = "email"
	// Role ключ роли пользователя (models.Role) в контексте
	Role Key = "role"
)

// TokenParser проверяет токен доступа.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, добавляет пользователя в контекст запроса,
// иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				response.WriteError(w, r, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			claims, err := parser.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				response.WriteError(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserUID, claims.UserID)
			ctx = context.WithValue(ctx, Email, claims.Email)
			ctx = context.WithValue(ctx, Role, models.ParseRole(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext возвращает идентификатор и роль пользователя,
// положенные JWTMiddleware.
func UserFromContext(ctx context.Context) (string, models.Role, bool) {
	uid, ok := ctx.Value(UserUID).(string)
	if !ok || uid == "" {
		return "", models.RoleUnknown, false
	}
	role, _ := ctx.Value(Role).(models.Role)
	return uid, role, true
}

// RequireRole пропускает запрос, только если роль пользователя в списке.
func RequireRole(log *slog.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, role, ok := UserFromContext(r.Context())
			if !ok {
				response.WriteError(w, r, http.StatusUnauthorized, "user identification missing")
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Warn("access denied", slog.String("user_uid", uid), slog.String("role", role.String()))
			response.WriteError(w, r, http.StatusForbidden, "access denied")
		})
	}
}
