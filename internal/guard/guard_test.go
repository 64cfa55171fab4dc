package guard_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/lms-portal/internal/guard"
	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	"github.com/magabrotheeeer/lms-portal/internal/models"
	"github.com/magabrotheeeer/lms-portal/internal/session"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newSession собирает Store с записью пользователя в сыром виде, как её
// мог оставить бэкенд.
func newSession(t *testing.T, token, rawUser string) *session.Store {
	t.Helper()
	storage := session.NewMemoryStorage()
	if token != "" {
		assert.NoError(t, storage.Set(session.TokenKey, token))
	}
	if rawUser != "" {
		assert.NoError(t, storage.Set(session.UserKey, rawUser))
	}
	return session.NewStore(storage, newNoopLogger())
}

type LookupMock struct{ mock.Mock }

func (m *LookupMock) GetInstructorSubscription(ctx context.Context, instructorID string) (*models.Subscription, error) {
	args := m.Called(ctx, instructorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func TestRoleGuards(t *testing.T) {
	log := newNoopLogger()
	tests := []struct {
		name     string
		guard    func(s guard.Session) *guard.RoleGuard
		token    string
		user     string
		target   string
		wantAll  bool
		redirect string
	}{
		{
			name:     "no session goes to login with return url",
			guard:    func(s guard.Session) *guard.RoleGuard { return guard.AdminGuard(s, log) },
			target:   "/admin/users?page=2",
			redirect: "/login?returnUrl=%2Fadmin%2Fusers%3Fpage%3D2",
		},
		{
			name:    "admin passes admin guard",
			guard:   func(s guard.Session) *guard.RoleGuard { return guard.AdminGuard(s, log) },
			token:   "t",
			user:    `{"userId":"u1","role":"Admin"}`,
			target:  "/admin",
			wantAll: true,
		},
		{
			name:    "legacy numeric admin passes admin guard",
			guard:   func(s guard.Session) *guard.RoleGuard { return guard.AdminGuard(s, log) },
			token:   "t",
			user:    `{"userId":"u1","role":"0"}`,
			target:  "/admin",
			wantAll: true,
		},
		{
			name:     "instructor on admin route goes home",
			guard:    func(s guard.Session) *guard.RoleGuard { return guard.AdminGuard(s, log) },
			token:    "t",
			user:     `{"userId":"u1","role":"instructor"}`,
			target:   "/admin",
			redirect: "/instructor",
		},
		{
			name:    "admin passes instructor guard",
			guard:   func(s guard.Session) *guard.RoleGuard { return guard.InstructorGuard(s, log) },
			token:   "t",
			user:    `{"userId":"u1","role":0}`,
			target:  "/instructor/courses",
			wantAll: true,
		},
		{
			name:     "student on instructor route goes home",
			guard:    func(s guard.Session) *guard.RoleGuard { return guard.InstructorGuard(s, log) },
			token:    "t",
			user:     `{"userId":"u1","role":"2"}`,
			target:   "/instructor",
			redirect: "/student",
		},
		{
			name:    "admin passes student guard",
			guard:   func(s guard.Session) *guard.RoleGuard { return guard.StudentGuard(s, log) },
			token:   "t",
			user:    `{"userId":"u1","role":"ADMIN"}`,
			target:  "/student",
			wantAll: true,
		},
		{
			name:     "instructor on student route goes home",
			guard:    func(s guard.Session) *guard.RoleGuard { return guard.StudentGuard(s, log) },
			token:    "t",
			user:     `{"userId":"u1","role":1}`,
			target:   "/student",
			redirect: "/instructor",
		},
		{
			name:     "token without user record goes to login",
			guard:    func(s guard.Session) *guard.RoleGuard { return guard.StudentGuard(s, log) },
			token:    "t",
			target:   "/student",
			redirect: "/login?returnUrl=%2Fstudent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.guard(newSession(t, tt.token, tt.user))

			d := g.Check(context.Background(), tt.target)
			assert.Equal(t, tt.wantAll, d.Allow)
			assert.Equal(t, tt.redirect, d.RedirectTo)
		})
	}
}

func TestSubscriptionGate(t *testing.T) {
	const instructor = `{"userId":"i1","role":"Instructor"}`
	wantRedirect := "/instructor/subscription?returnUrl=%2Finstructor%2Fcourses"

	tests := []struct {
		name       string
		user       string
		setupMocks func(m *LookupMock)
		wantAllow  bool
	}{
		{
			name:       "student skips lookup",
			user:       `{"userId":"s1","role":"Student"}`,
			setupMocks: func(_ *LookupMock) {},
			wantAllow:  true,
		},
		{
			name:       "admin skips lookup",
			user:       `{"userId":"a1","role":"0"}`,
			setupMocks: func(_ *LookupMock) {},
			wantAllow:  true,
		},
		{
			name: "active subscription",
			user: instructor,
			setupMocks: func(m *LookupMock) {
				m.On("GetInstructorSubscription", mock.Anything, "i1").
					Return(&models.Subscription{IsActive: true}, nil).Once()
			},
			wantAllow: true,
		},
		{
			name: "inactive subscription",
			user: instructor,
			setupMocks: func(m *LookupMock) {
				m.On("GetInstructorSubscription", mock.Anything, "i1").
					Return(&models.Subscription{IsActive: false}, nil).Once()
			},
		},
		{
			name: "not found",
			user: instructor,
			setupMocks: func(m *LookupMock) {
				m.On("GetInstructorSubscription", mock.Anything, "i1").
					Return(nil, apperr.New(apperr.KindNotFound, 404, "", nil)).Once()
			},
		},
		{
			name: "network error fails closed",
			user: instructor,
			setupMocks: func(m *LookupMock) {
				m.On("GetInstructorSubscription", mock.Anything, "i1").
					Return(nil, apperr.New(apperr.KindNetwork, 0, "", context.DeadlineExceeded)).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &LookupMock{}
			tt.setupMocks(lookup)
			gate := guard.NewSubscriptionGate(newSession(t, "t", tt.user), lookup, time.Second, newNoopLogger())

			d := gate.Check(context.Background(), "/instructor/courses")
			assert.Equal(t, tt.wantAllow, d.Allow)
			if tt.wantAllow {
				lookup.AssertExpectations(t)
				return
			}
			assert.Equal(t, wantRedirect, d.RedirectTo)
			assert.Equal(t, guard.MsgSubscriptionRequired, d.Message)
			lookup.AssertExpectations(t)
		})
	}
}

func TestSubscriptionGate_TimeoutFailsClosed(t *testing.T) {
	lookup := &LookupMock{}
	lookup.On("GetInstructorSubscription", mock.Anything, "i1").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded).Once()
	gate := guard.NewSubscriptionGate(newSession(t, "t", `{"userId":"i1","role":"Instructor"}`), lookup, 20*time.Millisecond, newNoopLogger())

	start := time.Now()
	d := gate.Check(context.Background(), "/instructor")
	assert.False(t, d.Allow)
	assert.Equal(t, "/instructor/subscription?returnUrl=%2Finstructor", d.RedirectTo)
	assert.Less(t, time.Since(start), time.Second)
}
