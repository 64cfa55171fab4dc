package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// DeleteUser удаляет учётную запись.
func (s *AccountsService) DeleteUser(ctx context.Context, id string) error {
	const op = "accounts.DeleteUser"
	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted", slog.String("user_id", id))
	return nil
}

// UploadPhoto сохраняет фото профиля.
func (s *AccountsService) UploadPhoto(ctx context.Context, id, filename string, data []byte) error {
	const op = "accounts.UploadPhoto"
	if err := s.repo.SavePhoto(ctx, id, filename, data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListUsers возвращает список пользователей для админки.
func (s *AccountsService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	const op = "accounts.ListUsers"
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	users := make([]models.UserSummary, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, a.Summary())
	}
	return users, nil
}

// GetSubscription возвращает подписку преподавателя.
func (s *AccountsService) GetSubscription(ctx context.Context, instructorID string) (*models.Subscription, error) {
	const op = "accounts.GetSubscription"
	sub, err := s.repo.SubscriptionByInstructor(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ActivateSubscription создаёт или обновляет подписку преподавателя.
// Пустой план заменяется на "Basic".
func (s *AccountsService) ActivateSubscription(ctx context.Context, instructorID, plan string, active bool, endDate *time.Time) (*models.Subscription, error) {
	const op = "accounts.ActivateSubscription"
	acc, err := s.repo.AccountByID(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if acc.Role != models.RoleInstructor {
		return nil, fmt.Errorf("%s: %w", op, ErrNotInstructor)
	}
	if plan == "" {
		plan = "Basic"
	}
	sub := models.Subscription{
		ID:           uuid.NewString(),
		InstructorID: instructorID,
		PlanName:     plan,
		IsActive:     active,
		StartDate:    s.now().UTC(),
		EndDate:      endDate,
	}
	if err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stored, err := s.repo.SubscriptionByInstructor(ctx, instructorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription updated", slog.String("instructor_id", instructorID), slog.Bool("active", active))
	return stored, nil
}

// DashboardStats сводные показатели админки.
func (s *AccountsService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	const op = "accounts.DashboardStats"
	st, err := s.repo.DashboardStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// Courses список курсов.
func (s *AccountsService) Courses(ctx context.Context) ([]models.CourseSummary, error) {
	const op = "accounts.Courses"
	courses, err := s.repo.ListCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if courses == nil {
		courses = []models.CourseSummary{}
	}
	return courses, nil
}

// Tickets список обращений в поддержку.
func (s *AccountsService) Tickets(ctx context.Context) ([]models.Ticket, error) {
	const op = "accounts.Tickets"
	tickets, err := s.repo.ListTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return tickets, nil
}
