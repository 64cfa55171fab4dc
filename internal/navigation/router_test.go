package navigation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lms-portal/internal/config"
	"github.com/magabrotheeeer/lms-portal/internal/guard"
	"github.com/magabrotheeeer/lms-portal/internal/models"
	"github.com/magabrotheeeer/lms-portal/internal/navigation"
	"github.com/magabrotheeeer/lms-portal/internal/session"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeLookup struct {
	active bool
	calls  int
}

func (f *fakeLookup) GetInstructorSubscription(_ context.Context, _ string) (*models.Subscription, error) {
	f.calls++
	return &models.Subscription{IsActive: f.active}, nil
}

func newRouter(t *testing.T, role models.Role, active bool) (*navigation.Router, *fakeLookup) {
	t.Helper()
	store := session.NewStore(session.NewMemoryStorage(), newNoopLogger())
	if role != models.RoleUnknown {
		store.Save(models.Session{UserID: "u1", Role: role, AccessToken: "token"})
	}
	lookup := &fakeLookup{active: active}
	return navigation.NewPortalRouter(store, lookup, config.Guard{SubscriptionTimeout: time.Second}, newNoopLogger()), lookup
}

func TestPortalRouter_Navigate(t *testing.T) {
	tests := []struct {
		name        string
		role        models.Role
		active      bool
		target      string
		wantAllow   bool
		wantTo      string
		wantLookups int
	}{
		{name: "public login", target: "/login", wantAllow: true},
		{name: "anonymous admin", target: "/admin/users", wantTo: "/login?returnUrl=%2Fadmin%2Fusers"},
		{name: "admin dashboard", role: models.RoleAdmin, target: "/admin", wantAllow: true},
		{name: "student on admin", role: models.RoleStudent, target: "/admin", wantTo: "/student"},
		{name: "admin on instructor area skips subscription", role: models.RoleAdmin, target: "/instructor/courses", wantAllow: true},
		{name: "instructor with subscription", role: models.RoleInstructor, active: true, target: "/instructor/courses", wantAllow: true, wantLookups: 1},
		{
			name:        "instructor without subscription",
			role:        models.RoleInstructor,
			target:      "/instructor/courses",
			wantTo:      "/instructor/subscription?returnUrl=%2Finstructor%2Fcourses",
			wantLookups: 1,
		},
		{name: "subscription page is not gated", role: models.RoleInstructor, target: "/instructor/subscription", wantAllow: true},
		{name: "student on instructor area", role: models.RoleStudent, target: "/instructor", wantTo: "/student"},
		{name: "prefix must match whole segment", role: models.RoleStudent, target: "/administrator", wantAllow: true},
		{name: "query string ignored for matching", target: "/student/courses?id=1", wantTo: "/login?returnUrl=%2Fstudent%2Fcourses%3Fid%3D1"},
		{name: "dot segments resolve before matching", role: models.RoleStudent, target: "/student/../admin", wantTo: "/student"},
		{name: "double slash is not a host", role: models.RoleStudent, target: "//admin", wantTo: "/student"},
		{name: "current dir segment", role: models.RoleStudent, target: "/admin/./x", wantTo: "/student"},
		{name: "dot segments cannot escape root", role: models.RoleStudent, target: "/../../admin/users", wantTo: "/student"},
		{name: "fragment ignored for matching", role: models.RoleStudent, target: "/admin#users", wantTo: "/student"},
		{name: "instructor gate after cleaning", role: models.RoleInstructor, target: "/instructor/subscription/../courses", wantTo: "/instructor/subscription?returnUrl=%2Finstructor%2Fsubscription%2F..%2Fcourses", wantLookups: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, lookup := newRouter(t, tt.role, tt.active)

			d := r.Navigate(context.Background(), tt.target)
			assert.Equal(t, tt.wantAllow, d.Allow)
			assert.Equal(t, tt.wantTo, d.RedirectTo)
			assert.Equal(t, tt.wantLookups, lookup.calls)
		})
	}
}

func TestRouter_Match_LongestPrefix(t *testing.T) {
	r := navigation.NewRouter(newNoopLogger())
	r.Handle("/instructor")
	r.Handle("/instructor/subscription/")

	route, ok := r.Match("/instructor/subscription?returnUrl=x")
	require.True(t, ok)
	assert.Equal(t, "/instructor/subscription", route.Prefix)

	_, ok = r.Match("/unknown")
	assert.False(t, ok)
}

func TestRouter_Navigate_FirstRedirectWins(t *testing.T) {
	second := &countingGuard{}
	r := navigation.NewRouter(newNoopLogger())
	r.Handle("/x", denyGuard{}, second)

	d := r.Navigate(context.Background(), "/x")
	assert.Equal(t, "/denied", d.RedirectTo)
	assert.Zero(t, second.calls)
}

type denyGuard struct{}

func (denyGuard) Check(context.Context, string) models.Decision {
	return models.Redirect("/denied", "")
}

type countingGuard struct{ calls int }

func (g *countingGuard) Check(context.Context, string) models.Decision {
	g.calls++
	return models.Allowed()
}

var _ guard.Guard = (*countingGuard)(nil)
