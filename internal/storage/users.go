package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/lms-portal/internal/models"
)

const accountColumns = `id, full_name, email, password_hash, role, phone_number, bio,
	is_verified, verification_code, reset_code, reset_expires_at, photo_name, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acc       models.Account
		role      int
		resetExp  sql.NullTime
		createdAt time.Time
	)
	err := row.Scan(&acc.ID, &acc.FullName, &acc.Email, &acc.PasswordHash, &role, &acc.PhoneNumber, &acc.Bio,
		&acc.IsVerified, &acc.VerificationCode, &acc.ResetCode, &resetExp, &acc.PhotoName, &createdAt)
	if err != nil {
		return nil, err
	}
	acc.Role = models.ParseRole(role)
	if resetExp.Valid {
		acc.ResetExpiresAt = resetExp.Time
	}
	acc.CreatedAt = createdAt
	return &acc, nil
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// CreateAccount вставляет новую учётную запись.
func (s *Storage) CreateAccount(ctx context.Context, acc models.Account) error {
	const op = "storage.CreateAccount"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO users (id, full_name, email, password_hash, role, phone_number, bio,
			      is_verified, verification_code, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.DB.ExecContext(ctx, query,
		acc.ID, acc.FullName, acc.Email, acc.PasswordHash, acc.Role.Code(), acc.PhoneNumber, acc.Bio,
		acc.IsVerified, acc.VerificationCode, acc.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AccountByID возвращает учётную запись по идентификатору.
func (s *Storage) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.AccountByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	acc, err := scanAccount(s.DB.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// AccountByEmail возвращает учётную запись по почте без учёта регистра.
func (s *Storage) AccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.AccountByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	acc, err := scanAccount(s.DB.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return acc, nil
}

// UpdateAccount перезаписывает изменяемые поля учётной записи.
func (s *Storage) UpdateAccount(ctx context.Context, acc models.Account) error {
	const op = "storage.UpdateAccount"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET
			full_name = $2, password_hash = $3, role = $4, phone_number = $5, bio = $6,
			is_verified = $7, verification_code = $8, reset_code = $9, reset_expires_at = $10
		WHERE id::text = $1`,
		acc.ID, acc.FullName, acc.PasswordHash, acc.Role.Code(), acc.PhoneNumber, acc.Bio,
		acc.IsVerified, acc.VerificationCode, acc.ResetCode, nullableTime(acc.ResetExpiresAt))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOne(res, op)
}

// DeleteAccount удаляет учётную запись вместе с токенами и подпиской.
func (s *Storage) DeleteAccount(ctx context.Context, id string) error {
	const op = "storage.DeleteAccount"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id::text = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOne(res, op)
}

// ListAccounts возвращает все учётные записи по дате создания.
func (s *Storage) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const op = "storage.ListAccounts"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+accountColumns+` FROM users ORDER BY created_at, email`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return accounts, nil
}

// SavePhoto сохраняет фото профиля.
func (s *Storage) SavePhoto(ctx context.Context, userID, filename string, data []byte) error {
	const op = "storage.SavePhoto"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET photo_name = $2, photo = $3 WHERE id::text = $1`, userID, filename, data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectOne(res, op)
}

func expectOne(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
