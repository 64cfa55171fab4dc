// Package memory хранилище dev-бэкенда в памяти процесса.
// Используется, когда строка подключения к PostgreSQL не задана, и в тестах.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/magabrotheeeer/lms-portal/internal/models"
	"github.com/magabrotheeeer/lms-portal/internal/storage"
)

type photo struct {
	name string
	data []byte
}

// Storage потокобезопасное хранилище в памяти. Ошибки совпадают с
// ошибками пакета storage.
type Storage struct {
	mu            sync.RWMutex
	accounts      map[string]models.Account
	tokens        map[string]models.RefreshToken
	subscriptions map[string]models.Subscription
	photos        map[string]photo
	courses       []models.CourseSummary
	tickets       []models.Ticket
	enrollments   int
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		accounts:      make(map[string]models.Account),
		tokens:        make(map[string]models.RefreshToken),
		subscriptions: make(map[string]models.Subscription),
		photos:        make(map[string]photo),
	}
}

// CreateAccount добавляет учётную запись, почта уникальна без учёта регистра.
func (s *Storage) CreateAccount(_ context.Context, acc models.Account) error {
	const op = "memory.CreateAccount"
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, acc.Email) {
			return fmt.Errorf("%s: %w", op, storage.ErrEmailTaken)
		}
	}
	s.accounts[acc.ID] = acc
	return nil
}

// AccountByID возвращает учётную запись по идентификатору.
func (s *Storage) AccountByID(_ context.Context, id string) (*models.Account, error) {
	const op = "memory.AccountByID"
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return &acc, nil
}

// AccountByEmail возвращает учётную запись по почте.
func (s *Storage) AccountByEmail(_ context.Context, email string) (*models.Account, error) {
	const op = "memory.AccountByEmail"
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// UpdateAccount перезаписывает учётную запись.
func (s *Storage) UpdateAccount(_ context.Context, acc models.Account) error {
	const op = "memory.UpdateAccount"
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[acc.ID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	s.accounts[acc.ID] = acc
	return nil
}

// DeleteAccount удаляет учётную запись и всё, что на неё ссылается.
func (s *Storage) DeleteAccount(_ context.Context, id string) error {
	const op = "memory.DeleteAccount"
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	delete(s.accounts, id)
	delete(s.subscriptions, id)
	delete(s.photos, id)
	for k, t := range s.tokens {
		if t.UserID == id {
			delete(s.tokens, k)
		}
	}
	return nil
}

// ListAccounts возвращает учётные записи по дате создания.
func (s *Storage) ListAccounts(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Email < out[j].Email
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// SavePhoto сохраняет фото профиля.
func (s *Storage) SavePhoto(_ context.Context, userID, filename string, data []byte) error {
	const op = "memory.SavePhoto"
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	acc.PhotoName = filename
	s.accounts[userID] = acc
	s.photos[userID] = photo{name: filename, data: append([]byte(nil), data...)}
	return nil
}

// SaveRefreshToken сохраняет refresh-токен.
func (s *Storage) SaveRefreshToken(_ context.Context, t models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.Token] = t
	return nil
}

// RefreshToken возвращает refresh-токен.
func (s *Storage) RefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	const op = "memory.RefreshToken"
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return &t, nil
}

// DeleteRefreshToken отзывает refresh-токен.
func (s *Storage) DeleteRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

// SubscriptionByInstructor возвращает подписку преподавателя.
func (s *Storage) SubscriptionByInstructor(_ context.Context, instructorID string) (*models.Subscription, error) {
	const op = "memory.SubscriptionByInstructor"
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[instructorID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return &sub, nil
}

// UpsertSubscription создаёт или заменяет подписку.
func (s *Storage) UpsertSubscription(_ context.Context, sub models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.subscriptions[sub.InstructorID]; ok {
		sub.ID = old.ID
	}
	s.subscriptions[sub.InstructorID] = sub
	return nil
}

// CreateCourse добавляет курс.
func (s *Storage) CreateCourse(_ context.Context, c models.CourseSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = append(s.courses, c)
	return nil
}

// Enroll увеличивает счётчик записей на курсы.
func (s *Storage) Enroll(_ context.Context, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollments++
	return nil
}

// ListCourses возвращает курсы по названию.
func (s *Storage) ListCourses(_ context.Context) ([]models.CourseSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.CourseSummary(nil), s.courses...)
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// CreateTicket добавляет обращение.
func (s *Storage) CreateTicket(_ context.Context, t models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = append(s.tickets, t)
	return nil
}

// ListTickets возвращает обращения, новые первыми.
func (s *Storage) ListTickets(_ context.Context) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]models.Ticket(nil), s.tickets...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// DashboardStats считает сводные показатели.
func (s *Storage) DashboardStats(_ context.Context) (*models.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := &models.DashboardStats{
		TotalUsers:       len(s.accounts),
		TotalCourses:     len(s.courses),
		TotalEnrollments: s.enrollments,
	}
	for _, t := range s.tickets {
		if t.Status == "Open" {
			st.OpenTickets++
		}
	}
	return st, nil
}
