// Package services содержит клиент подписок преподавателя.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	"github.com/magabrotheeeer/lms-portal/internal/lib/loose"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Transport выполняет JSON-запросы к бэкенду.
type Transport interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error)
}

// SubscriptionService клиент подписок.
type SubscriptionService struct {
	transport Transport
	log       *slog.Logger
}

// NewSubscriptionService создает новый экземпляр SubscriptionService.
func NewSubscriptionService(transport Transport, log *slog.Logger) *SubscriptionService {
	return &SubscriptionService{
		transport: transport,
		log:       log.With(slog.String("component", "subscription.Service")),
	}
}

// GetInstructorSubscription возвращает подписку преподавателя.
// Если подписки нет, возвращает apperr.ErrNotFound.
func (s *SubscriptionService) GetInstructorSubscription(ctx context.Context, instructorID string) (*models.Subscription, error) {
	const op = "subscription.GetInstructorSubscription"
	if instructorID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("instructor id is required"))
	}

	body, err := s.transport.Do(ctx, http.MethodGet, "/api/subscriptions/instructor/"+url.PathEscape(instructorID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	obj, err := loose.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, apperr.New(apperr.KindServer, 0, "", err))
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.New(apperr.KindNotFound, 0, "", errors.New("empty subscription")))
	}

	sub := parseSubscription(obj)
	if sub.InstructorID == "" {
		sub.InstructorID = instructorID
	}
	s.log.Debug("subscription loaded",
		slog.String("instructor_id", instructorID),
		slog.Bool("active", sub.IsActive),
	)
	return sub, nil
}

func parseSubscription(obj loose.Object) *models.Subscription {
	sub := &models.Subscription{
		ID:           obj.String("id", "subscriptionId", "Id"),
		InstructorID: obj.String("instructorId", "instructor_id", "InstructorId", "userId"),
		PlanName:     obj.String("planName", "plan", "plan_name", "PlanName"),
		IsActive:     obj.Bool("isActive", "is_active", "active", "IsActive"),
		StartDate:    obj.Time("startDate", "start_date", "StartDate"),
	}
	if end := obj.Time("endDate", "end_date", "EndDate"); !end.IsZero() {
		sub.EndDate = &end
	}
	return sub
}
