package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// SubscriptionByInstructor возвращает подписку преподавателя.
func (s *Storage) SubscriptionByInstructor(ctx context.Context, instructorID string) (*models.Subscription, error) {
	const op = "storage.SubscriptionByInstructor"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var (
		sub models.Subscription
		end sql.NullTime
	)
	err := s.DB.QueryRowContext(ctx, `SELECT id::text, instructor_id::text, plan_name, is_active, start_date, end_date
		FROM subscriptions WHERE instructor_id::text = $1`, instructorID).
		Scan(&sub.ID, &sub.InstructorID, &sub.PlanName, &sub.IsActive, &sub.StartDate, &end)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if end.Valid {
		sub.EndDate = &end.Time
	}
	return &sub, nil
}

// UpsertSubscription создаёт или заменяет подписку преподавателя.
func (s *Storage) UpsertSubscription(ctx context.Context, sub models.Subscription) error {
	const op = "storage.UpsertSubscription"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	var end sql.NullTime
	if sub.EndDate != nil {
		end = sql.NullTime{Time: *sub.EndDate, Valid: true}
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO subscriptions (id, instructor_id, plan_name, is_active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (instructor_id) DO UPDATE SET
			plan_name = EXCLUDED.plan_name,
			is_active = EXCLUDED.is_active,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date`,
		sub.ID, sub.InstructorID, sub.PlanName, sub.IsActive, sub.StartDate, end)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
