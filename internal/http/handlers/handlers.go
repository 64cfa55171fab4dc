// Package handlers общие помощники HTTP-обработчиков dev-бэкенда:
// перевод ошибок сервиса в статусы и разбор тел запросов.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	accounts "github.com/magabrotheeeer/lms-portal/internal/services/accounts"
	"github.com/magabrotheeeer/lms-portal/internal/storage"
)

const maxBodySize = 1 << 20

// StatusFor переводит ошибку сервиса в HTTP-статус и сообщение для клиента.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, storage.ErrEmailTaken):
		return http.StatusConflict, storage.ErrEmailTaken.Error()
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return http.StatusUnauthorized, accounts.ErrInvalidCredentials.Error()
	case errors.Is(err, accounts.ErrNotVerified):
		return http.StatusForbidden, "email is not verified, check your inbox for the code"
	case errors.Is(err, accounts.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, accounts.ErrInvalidRefreshToken.Error()
	case errors.Is(err, accounts.ErrAlreadyVerified):
		return http.StatusConflict, accounts.ErrAlreadyVerified.Error()
	case errors.Is(err, accounts.ErrInvalidCode),
		errors.Is(err, accounts.ErrWrongPassword),
		errors.Is(err, accounts.ErrInvalidResetToken),
		errors.Is(err, accounts.ErrNotInstructor):
		return http.StatusBadRequest, rootMessage(err)
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func rootMessage(err error) string {
	for _, sentinel := range []error{
		accounts.ErrInvalidCode,
		accounts.ErrWrongPassword,
		accounts.ErrInvalidResetToken,
		accounts.ErrNotInstructor,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// DecodeJSON читает тело запроса в v.
func DecodeJSON(r *http.Request, v any) error {
	const op = "handlers.DecodeJSON"
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DecodeBareString читает тело, которое клиент шлёт голой JSON-строкой.
// Объект с одним из ключей keys тоже принимается.
func DecodeBareString(r *http.Request, keys ...string) (string, error) {
	const op = "handlers.DecodeBareString"
	var raw any
	if err := DecodeJSON(r, &raw); err != nil {
		return "", err
	}
	switch v := raw.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s, nil
		}
	case map[string]any:
		for _, k := range keys {
			if s, ok := v[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), nil
			}
		}
	}
	return "", fmt.Errorf("%s: body must be a non-empty string", op)
}
