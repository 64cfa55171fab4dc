// Package services содержит клиент управления пользователями.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	"github.com/magabrotheeeer/lms-portal/internal/lib/loose"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Transport выполняет запросы к бэкенду.
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error)
	DoMultipart(ctx context.Context, path, field, filename string, file io.Reader) ([]byte, error)
}

// UsersService клиент пользователей.
type UsersService struct {
	transport Transport
	log       *slog.Logger
}

// NewUsersService создает новый экземпляр UsersService.
func NewUsersService(transport Transport, log *slog.Logger) *UsersService {
	return &UsersService{
		transport: transport,
		log:       log.With(slog.String("component", "users.Service")),
	}
}

func userPath(id string) string {
	return "/api/users/" + url.PathEscape(id)
}

// Delete удаляет пользователя.
func (s *UsersService) Delete(ctx context.Context, id string) error {
	const op = "users.Delete"
	if id == "" {
		return fmt.Errorf("%s: %w", op, apperr.Validation("user id is required"))
	}
	if _, err := s.transport.Do(ctx, http.MethodDelete, userPath(id), nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted", slog.String("user_id", id))
	return nil
}

// UploadPhoto загружает фото профиля полем photo.
func (s *UsersService) UploadPhoto(ctx context.Context, id, filename string, file io.Reader) error {
	const op = "users.UploadPhoto"
	if id == "" || file == nil {
		return fmt.Errorf("%s: %w", op, apperr.Validation("user id and photo are required"))
	}
	if _, err := s.transport.DoMultipart(ctx, userPath(id)+"/photo", "photo", filename, file); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// List возвращает список пользователей.
func (s *UsersService) List(ctx context.Context) ([]models.UserSummary, error) {
	const op = "users.List"
	body, err := s.transport.Do(ctx, http.MethodGet, "/api/users", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items, err := loose.DecodeList(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.New(apperr.KindServer, 0, "", err))
	}
	users := make([]models.UserSummary, 0, len(items))
	for _, item := range items {
		users = append(users, ParseUserSummary(item))
	}
	return users, nil
}

// ParseUserSummary разбирает запись пользователя из ответа бэкенда.
func ParseUserSummary(obj loose.Object) models.UserSummary {
	u := models.UserSummary{
		UserID:     obj.String("userId", "id", "user_id", "Id"),
		FullName:   obj.String("fullName", "name", "full_name", "FullName"),
		Email:      obj.String("email", "Email"),
		IsVerified: obj.Bool("isVerified", "emailConfirmed", "is_verified", "verified"),
	}
	if v, ok := obj.Value("role", "Role", "roleName"); ok {
		u.Role = models.ParseRole(v)
	}
	return u
}
