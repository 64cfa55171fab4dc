package services

import (
	"github.com/magabrotheeeer/lms-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-portal/internal/lib/loose"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Варианты имён полей, встречающиеся в ответах бэкенда.
var (
	userIDKeys       = []string{"userId", "id", "user_id", "UserId", "Id"}
	fullNameKeys     = []string{"fullName", "name", "full_name", "FullName", "userName"}
	emailKeys        = []string{"email", "Email", "emailAddress", "mail"}
	accessTokenKeys  = []string{"accessToken", "token", "access_token", "jwt", "AccessToken"}
	refreshTokenKeys = []string{"refreshToken", "refresh_token", "RefreshToken"}
	roleKeys         = []string{"role", "Role", "userRole", "roleName", "roleId"}
	expiresAtKeys    = []string{"expiresAt", "expires_at", "expiration", "ExpiresAt"}
)

// parseSession разбирает ответ login/register/refresh. Поля пользователя
// ищутся в корне и во вложенном объекте user; недостающие id, роль и срок
// берутся из claims токена доступа.
func parseSession(body []byte) (*models.Session, error) {
	obj, err := loose.Decode(body)
	if err != nil {
		return nil, err
	}
	user := obj.Object("user", "User")
	if user == nil {
		user = loose.Object{}
	}

	pick := func(keys []string) string {
		if v := obj.String(keys...); v != "" {
			return v
		}
		return user.String(keys...)
	}

	sess := &models.Session{
		UserID:       pick(userIDKeys),
		FullName:     pick(fullNameKeys),
		Email:        pick(emailKeys),
		AccessToken:  obj.String(accessTokenKeys...),
		RefreshToken: obj.String(refreshTokenKeys...),
		ExpiresAt:    obj.Time(expiresAtKeys...),
	}
	if v, ok := obj.Value(roleKeys...); ok {
		sess.Role = models.ParseRole(v)
	} else if v, ok := user.Value(roleKeys...); ok {
		sess.Role = models.ParseRole(v)
	}

	if sess.AccessToken != "" && (sess.ExpiresAt.IsZero() || sess.UserID == "" || !sess.Role.Valid()) {
		if claims, err := jwt.ParseUnverified(sess.AccessToken); err == nil {
			if sess.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
				sess.ExpiresAt = claims.ExpiresAt.Time.UTC()
			}
			if sess.UserID == "" {
				sess.UserID = claims.UserID
			}
			if !sess.Role.Valid() {
				sess.Role = models.ParseRole(claims.Role)
			}
		}
	}
	return sess, nil
}
