// Package services собирает сводку админки из четырёх параллельных запросов.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	"github.com/magabrotheeeer/lms-portal/internal/lib/loose"
	"github.com/magabrotheeeer/lms-portal/internal/models"
	users "github.com/magabrotheeeer/lms-portal/internal/services/users"
)

// Transport выполняет JSON-запросы к бэкенду.
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error)
}

// DashboardService клиент админки.
type DashboardService struct {
	transport Transport
	log       *slog.Logger
}

// NewDashboardService создает новый экземпляр DashboardService.
func NewDashboardService(transport Transport, log *slog.Logger) *DashboardService {
	return &DashboardService{
		transport: transport,
		log:       log.With(slog.String("component", "dashboard.Service")),
	}
}

// Load запрашивает статистику, пользователей, курсы и обращения параллельно
// и ждёт все ответы. Ошибка любого запроса отменяет остальные и
// возвращается целиком: частичный результат не отдаётся.
func (s *DashboardService) Load(ctx context.Context) (*models.Dashboard, error) {
	const op = "dashboard.Load"
	var d models.Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		obj, err := s.object(ctx, "/api/admin/dashboard")
		if err != nil {
			return err
		}
		d.Stats = models.DashboardStats{
			TotalUsers:       obj.Int("totalUsers", "total_users", "usersCount"),
			TotalCourses:     obj.Int("totalCourses", "total_courses", "coursesCount"),
			TotalEnrollments: obj.Int("totalEnrollments", "total_enrollments", "enrollmentsCount"),
			OpenTickets:      obj.Int("openTickets", "open_tickets", "ticketsCount"),
		}
		return nil
	})
	g.Go(func() error {
		items, err := s.list(ctx, "/api/users")
		if err != nil {
			return err
		}
		d.Users = make([]models.UserSummary, 0, len(items))
		for _, item := range items {
			d.Users = append(d.Users, users.ParseUserSummary(item))
		}
		return nil
	})
	g.Go(func() error {
		items, err := s.list(ctx, "/api/courses")
		if err != nil {
			return err
		}
		d.Courses = make([]models.CourseSummary, 0, len(items))
		for _, item := range items {
			d.Courses = append(d.Courses, models.CourseSummary{
				ID:           item.String("id", "courseId", "Id"),
				Title:        item.String("title", "name", "Title"),
				InstructorID: item.String("instructorId", "instructor_id", "InstructorId"),
				IsPublished:  item.Bool("isPublished", "published", "is_published"),
			})
		}
		return nil
	})
	g.Go(func() error {
		tickets, err := s.tickets(ctx)
		if err != nil {
			return err
		}
		d.Tickets = tickets
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Debug("dashboard loaded",
		slog.Int("users", len(d.Users)),
		slog.Int("courses", len(d.Courses)),
		slog.Int("tickets", len(d.Tickets)),
	)
	return &d, nil
}

// Tickets запрашивает обращения в поддержку.
func (s *DashboardService) Tickets(ctx context.Context) ([]models.Ticket, error) {
	const op = "dashboard.Tickets"
	tickets, err := s.tickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tickets, nil
}

func (s *DashboardService) tickets(ctx context.Context) ([]models.Ticket, error) {
	items, err := s.list(ctx, "/api/support/tickets")
	if err != nil {
		return nil, err
	}
	tickets := make([]models.Ticket, 0, len(items))
	for _, item := range items {
		tickets = append(tickets, models.Ticket{
			ID:        item.String("id", "ticketId", "Id"),
			Subject:   item.String("subject", "title", "Subject"),
			Status:    item.String("status", "Status"),
			UserID:    item.String("userId", "user_id", "UserId"),
			CreatedAt: item.Time("createdAt", "created_at", "CreatedAt"),
		})
	}
	return tickets, nil
}

func (s *DashboardService) object(ctx context.Context, path string) (loose.Object, error) {
	body, err := s.transport.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	obj, err := loose.Decode(body)
	if err != nil {
		return nil, apperr.New(apperr.KindServer, 0, "", err)
	}
	return obj, nil
}

func (s *DashboardService) list(ctx context.Context, path string) ([]loose.Object, error) {
	body, err := s.transport.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	items, err := loose.DecodeList(body)
	if err != nil {
		return nil, apperr.New(apperr.KindServer, 0, "", err)
	}
	return items, nil
}
