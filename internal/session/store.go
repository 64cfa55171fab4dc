// Package session реализует хранилище токенов и клиентской сессии.
//
// Store единственная точка чтения и записи текущего пользователя:
// токен доступа, refresh-токен и денормализованная запись пользователя
// под ключами auth_token, refresh_token и user_data. Store внедряется
// в зависимые компоненты явно, глобального экземпляра нет.
//
// Сбои хранилища не пробрасываются наружу: чтение при ошибке ведёт себя
// как «сессии нет», запись логируется предупреждением.
package session

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Ключи хранилища.
const (
	TokenKey        = "auth_token"
	RefreshTokenKey = "refresh_token"
	UserKey         = "user_data"
)

// Store хранилище токенов и пользователя.
type Store struct {
	storage Storage
	log     *slog.Logger
}

// NewStore создаёт Store поверх storage.
func NewStore(storage Storage, log *slog.Logger) *Store {
	return &Store{
		storage: storage,
		log:     log.With(slog.String("component", "session.Store")),
	}
}

// SaveToken перезаписывает токен доступа.
func (s *Store) SaveToken(token string) {
	s.set(TokenKey, token)
}

// SaveRefreshToken перезаписывает refresh-токен.
func (s *Store) SaveRefreshToken(token string) {
	s.set(RefreshTokenKey, token)
}

// SaveUser перезаписывает запись пользователя. Роль к этому моменту
// уже нормализована в models.Role и сохраняется каноническим именем.
func (s *Store) SaveUser(sess models.Session) {
	data, err := json.Marshal(sess.User())
	if err != nil {
		s.log.Warn("failed to encode user record", sl.Err(err))
		return
	}
	s.set(UserKey, string(data))
}

// Save записывает всю сессию: оба токена и пользователя.
func (s *Store) Save(sess models.Session) {
	s.SaveToken(sess.AccessToken)
	s.SaveRefreshToken(sess.RefreshToken)
	s.SaveUser(sess)
}

// Token возвращает токен доступа или пустую строку.
func (s *Store) Token() string {
	return s.get(TokenKey)
}

// RefreshToken возвращает refresh-токен или пустую строку.
func (s *Store) RefreshToken() string {
	return s.get(RefreshTokenKey)
}

// User возвращает сохранённого пользователя или nil, если записи нет
// либо она повреждена.
func (s *Store) User() *models.User {
	raw := s.get(UserKey)
	if raw == "" {
		return nil
	}
	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.log.Warn("stored user record is malformed", sl.Err(err))
		return nil
	}
	return &u
}

// Session собирает текущую сессию или nil, если пользователь не вошёл.
func (s *Store) Session() *models.Session {
	token := s.Token()
	if token == "" {
		return nil
	}
	sess := &models.Session{
		AccessToken:  token,
		RefreshToken: s.RefreshToken(),
	}
	if u := s.User(); u != nil {
		sess.UserID = u.UserID
		sess.FullName = u.FullName
		sess.Email = u.Email
		sess.Role = u.Role
		sess.ExpiresAt = u.ExpiresAt
	}
	return sess
}

// IsAuthenticated сообщает, сохранён ли непустой токен доступа.
// Срок действия и подпись токена не проверяются: просроченный токен
// отвергнет бэкенд при следующем запросе.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// Expired сообщает, что у сохранённой сессии известен срок действия
// и он истёк к моменту now. На IsAuthenticated не влияет.
func (s *Store) Expired(now time.Time) bool {
	u := s.User()
	if u == nil || u.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(u.ExpiresAt)
}

// ClearAll удаляет токены и пользователя. Повторный вызов безопасен.
func (s *Store) ClearAll() {
	if err := s.storage.Delete(TokenKey, RefreshTokenKey, UserKey); err != nil {
		s.log.Warn("failed to clear session storage", sl.Err(err))
	}
}

// ClearToken то же, что ClearAll.
func (s *Store) ClearToken() {
	s.ClearAll()
}

func (s *Store) get(key string) string {
	v, found, err := s.storage.Get(key)
	if err != nil {
		s.log.Warn("session storage unavailable, treating as logged out",
			slog.String("key", key), sl.Err(err))
		return ""
	}
	if !found {
		return ""
	}
	return v
}

func (s *Store) set(key, value string) {
	if err := s.storage.Set(key, value); err != nil {
		s.log.Warn("failed to write session storage", slog.String("key", key), sl.Err(err))
	}
}
