package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// SaveRefreshToken сохраняет выданный refresh-токен.
func (s *Storage) SaveRefreshToken(ctx context.Context, t models.RefreshToken) error {
	const op = "storage.SaveRefreshToken"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token, user_id, device_id, expires_at) VALUES ($1, $2, $3, $4)`,
		t.Token, t.UserID, t.DeviceID, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RefreshToken возвращает сохранённый refresh-токен.
func (s *Storage) RefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const op = "storage.RefreshToken"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var t models.RefreshToken
	err := s.DB.QueryRowContext(ctx,
		`SELECT token, user_id::text, device_id, expires_at FROM refresh_tokens WHERE token = $1`, token).
		Scan(&t.Token, &t.UserID, &t.DeviceID, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

// DeleteRefreshToken отзывает refresh-токен. Отсутствующий токен не ошибка.
func (s *Storage) DeleteRefreshToken(ctx context.Context, token string) error {
	const op = "storage.DeleteRefreshToken"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
