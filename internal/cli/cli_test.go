package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lms-portal/internal/app/devbackend"
	"github.com/magabrotheeeer/lms-portal/internal/config"
	"github.com/magabrotheeeer/lms-portal/internal/guard"
	"github.com/magabrotheeeer/lms-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-portal/internal/models"
	accounts "github.com/magabrotheeeer/lms-portal/internal/services/accounts"
	"github.com/magabrotheeeer/lms-portal/internal/session"
	"github.com/magabrotheeeer/lms-portal/internal/storage/memory"
	"github.com/magabrotheeeer/lms-portal/internal/wizard"
)

const (
	adminEmail    = "admin@lms.local"
	adminPassword = "admin1"
)

type harness struct {
	t       *testing.T
	cfg     *config.Config
	storage *session.MemoryStorage
	repo    *memory.Storage
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	maker := jwt.NewJWTMaker("cli-test-secret", time.Hour)
	repo := memory.New()
	svc := accounts.NewAccountsService(repo, maker, 24*time.Hour, log,
		accounts.WithCodeGenerator(func() (string, error) { return "ABC123", nil }))
	require.NoError(t, svc.SeedAdmin(context.Background(), "Admin", adminEmail, adminPassword))

	srv := httptest.NewServer(devbackend.NewHandler(devbackend.Deps{
		Logger:   log,
		Service:  svc,
		Tokens:   maker,
		Limiter:  middlewarectx.NewRateLimiter(1000, 1000),
		Registry: prometheus.NewRegistry(),
	}))
	t.Cleanup(srv.Close)

	return &harness{
		t: t,
		cfg: &config.Config{
			Env:     "test",
			Backend: config.Backend{BaseURL: srv.URL, Timeout: 5 * time.Second, DeviceID: "cli-test"},
			Session: config.Session{Driver: DriverMemory},
			Guard:   config.Guard{SubscriptionTimeout: time.Second},
		},
		storage: session.NewMemoryStorage(),
		repo:    repo,
	}
}

func (h *harness) run(stdin string, args ...string) (string, string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	err := ExecuteContext(context.Background(), append(args, "--no-input"),
		WithConfig(h.cfg),
		WithStorage(h.storage),
		WithIO(strings.NewReader(stdin), &out, &errOut),
	)
	return out.String(), errOut.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, errOut, err := h.run("", args...)
	require.NoError(h.t, err, errOut)
	return out
}

func (h *harness) login(email, password string) {
	h.t.Helper()
	h.mustRun("login", "--email", email, "--password", password)
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("whoami"), "Not logged in")

	out := h.mustRun("login", "--email", adminEmail, "--password", adminPassword)
	assert.Contains(t, out, "Logged in as Admin (Admin)")
	assert.Contains(t, out, "Home: /admin")

	out = h.mustRun("whoami")
	assert.Contains(t, out, adminEmail)
	assert.Contains(t, out, "Admin")

	assert.Contains(t, h.mustRun("open", "/admin"), "Opened /admin")
	assert.Contains(t, h.mustRun("open", "/student/courses"), "Opened /student/courses")

	assert.Contains(t, h.mustRun("logout"), "Logged out")
	assert.Contains(t, h.mustRun("whoami"), "Not logged in")
	assert.Contains(t, h.mustRun("open", "/admin"), "Redirected to /login?returnUrl=%2Fadmin")
}

func TestLoginRejected(t *testing.T) {
	h := newHarness(t)

	_, errOut, err := h.run("", "login", "--email", adminEmail, "--password", "wrong1")
	require.Error(t, err)
	assert.NotEmpty(t, errOut)
	assert.Contains(t, h.mustRun("whoami"), "Not logged in")
}

func TestLoginNeedsInput(t *testing.T) {
	h := newHarness(t)

	_, errOut, err := h.run("", "login", "--email", adminEmail)
	require.ErrorIs(t, err, errInteractiveOnly)
	assert.Contains(t, errOut, "password")
}

func TestAddUserAndSubscriptionGate(t *testing.T) {
	h := newHarness(t)
	h.login(adminEmail, adminPassword)

	out := h.mustRun("admin", "add-user",
		"--name", "Ivy Teacher",
		"--email", "ivy@example.com",
		"--password", "secret1",
		"--confirm", "secret1",
		"--role", "instructor",
		"--code", "abc123",
	)
	assert.Contains(t, out, "A verification code was sent to ivy@example.com")
	assert.Contains(t, out, wizard.MsgVerified)
	assert.Contains(t, out, "Instructor")

	out = h.mustRun("admin", "users", "list")
	assert.Contains(t, out, "ivy@example.com")

	h.mustRun("logout")
	h.login("ivy@example.com", "secret1")

	out = h.mustRun("open", "/instructor/courses")
	assert.Contains(t, out, guard.MsgSubscriptionRequired)
	assert.Contains(t, out, "Redirected to /instructor/subscription?returnUrl=%2Finstructor%2Fcourses")

	assert.Contains(t, h.mustRun("open", "/instructor/subscription"), "Opened /instructor/subscription")
	assert.Contains(t, h.mustRun("open", "/admin"), "Redirected to /instructor")
}

func TestAddUserCodeFromStdin(t *testing.T) {
	h := newHarness(t)
	h.login(adminEmail, adminPassword)

	out, errOut, err := h.run("abc123\n", "admin", "add-user",
		"--name", "Sam Student",
		"--email", "sam@example.com",
		"--password", "secret1",
		"--confirm", "secret1",
		"--role", "student",
	)
	require.NoError(t, err, errOut)
	assert.Contains(t, out, "Verification code: ")
	assert.Contains(t, out, wizard.MsgVerified)
}

func TestAddUserWrongCodeRemovesPendingUser(t *testing.T) {
	h := newHarness(t)
	h.login(adminEmail, adminPassword)

	_, _, err := h.run("", "admin", "add-user",
		"--name", "Sam Student",
		"--email", "sam@example.com",
		"--password", "secret1",
		"--confirm", "secret1",
		"--role", "student",
		"--code", "ZZZ999",
	)
	require.Error(t, err)

	out := h.mustRun("admin", "users", "list")
	assert.NotContains(t, out, "sam@example.com")
}

func TestAdminCommandsRequireAdmin(t *testing.T) {
	h := newHarness(t)

	_, errOut, err := h.run("", "admin", "users", "list")
	require.Error(t, err)
	assert.Contains(t, errOut, "Administrator access required")
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	h.login(adminEmail, adminPassword)

	out := h.mustRun("admin", "dashboard")
	assert.Contains(t, out, "Dashboard")
	assert.Contains(t, out, "Users: 1")
	assert.Contains(t, out, "Tickets")
}

func TestWhoamiWithUnreachableRedis(t *testing.T) {
	h := newHarness(t)
	h.cfg.Session = config.Session{Driver: DriverRedis, KeyPrefix: "lms:"}
	h.cfg.RedisConnection = config.RedisConnection{AddressRedis: "127.0.0.1:1", MaxRetries: -1}

	var out, errOut bytes.Buffer
	err := ExecuteContext(context.Background(), []string{"whoami", "--no-input"},
		WithConfig(h.cfg),
		WithIO(strings.NewReader(""), &out, &errOut),
	)
	require.NoError(t, err, errOut.String())
	assert.Contains(t, out.String(), "Not logged in")

	out.Reset()
	err = ExecuteContext(context.Background(), []string{"open", "/admin", "--no-input"},
		WithConfig(h.cfg),
		WithIO(strings.NewReader(""), &out, &errOut),
	)
	require.NoError(t, err, errOut.String())
	assert.Contains(t, out.String(), "Redirected to /login?returnUrl=%2Fadmin")
}

func TestAdminTickets(t *testing.T) {
	h := newHarness(t)
	h.login(adminEmail, adminPassword)

	assert.Contains(t, h.mustRun("admin", "tickets"), "No support tickets")

	require.NoError(t, h.repo.CreateTicket(context.Background(), models.Ticket{
		ID:        "t1",
		Subject:   "Cannot open course",
		Status:    "Open",
		UserID:    "u1",
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}))
	out := h.mustRun("admin", "tickets")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "Cannot open course")
}

func TestAdminTicketsWatch(t *testing.T) {
	h := newHarness(t)
	h.login(adminEmail, adminPassword)
	h.cfg.TicketsInterval = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var out, errOut bytes.Buffer
	err := ExecuteContext(ctx, []string{"admin", "tickets", "--watch", "--no-input"},
		WithConfig(h.cfg),
		WithStorage(h.storage),
		WithIO(strings.NewReader(""), &out, &errOut),
	)
	require.NoError(t, err, errOut.String())
	assert.GreaterOrEqual(t, strings.Count(out.String(), "No support tickets"), 2)
}
