package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// DashboardStats считает сводные показатели админки.
func (s *Storage) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	const op = "storage.DashboardStats"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var st models.DashboardStats
	err := s.DB.QueryRowContext(ctx, `SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM courses),
			(SELECT COUNT(*) FROM enrollments),
			(SELECT COUNT(*) FROM support_tickets WHERE status = 'Open')`).
		Scan(&st.TotalUsers, &st.TotalCourses, &st.TotalEnrollments, &st.OpenTickets)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &st, nil
}

// CreateCourse добавляет курс.
func (s *Storage) CreateCourse(ctx context.Context, c models.CourseSummary) error {
	const op = "storage.CreateCourse"
	var instructor sql.NullString
	if c.InstructorID != "" {
		instructor = sql.NullString{String: c.InstructorID, Valid: true}
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO courses (id, title, instructor_id, is_published) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Title, instructor, c.IsPublished)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListCourses возвращает курсы по названию.
func (s *Storage) ListCourses(ctx context.Context) ([]models.CourseSummary, error) {
	const op = "storage.ListCourses"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id::text, title, COALESCE(instructor_id::text, ''), is_published FROM courses ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var courses []models.CourseSummary
	for rows.Next() {
		var c models.CourseSummary
		if err := rows.Scan(&c.ID, &c.Title, &c.InstructorID, &c.IsPublished); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		courses = append(courses, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return courses, nil
}

// CreateTicket добавляет обращение в поддержку.
func (s *Storage) CreateTicket(ctx context.Context, t models.Ticket) error {
	const op = "storage.CreateTicket"
	var user sql.NullString
	if t.UserID != "" {
		user = sql.NullString{String: t.UserID, Valid: true}
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO support_tickets (id, subject, status, user_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		t.ID, t.Subject, t.Status, user, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListTickets возвращает обращения, новые первыми.
func (s *Storage) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	const op = "storage.ListTickets"
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id::text, subject, status, COALESCE(user_id::text, ''), created_at
		 FROM support_tickets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.Subject, &t.Status, &t.UserID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tickets, nil
}

// Enroll записывает пользователя на курс. Повторная запись не ошибка.
func (s *Storage) Enroll(ctx context.Context, courseID, userID string) error {
	const op = "storage.Enroll"
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO enrollments (course_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, courseID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
