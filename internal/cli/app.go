// Package cli реализует команды клиента портала: вход, регистрацию,
// навигацию с проверкой guard-ов и экраны администратора.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/lms-portal/internal/backend"
	"github.com/magabrotheeeer/lms-portal/internal/config"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/navigation"
	authsvc "github.com/magabrotheeeer/lms-portal/internal/services/auth"
	dashsvc "github.com/magabrotheeeer/lms-portal/internal/services/dashboard"
	subsvc "github.com/magabrotheeeer/lms-portal/internal/services/subscription"
	userssvc "github.com/magabrotheeeer/lms-portal/internal/services/users"
	"github.com/magabrotheeeer/lms-portal/internal/session"
)

// Драйверы хранилища сессии.
const (
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Option настраивает App.
type Option func(*App)

// WithConfig задаёт готовый конфиг вместо чтения файла.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) { a.cfg = cfg }
}

// WithStorage задаёт хранилище сессии вместо выбранного в конфиге.
func WithStorage(s session.Storage) Option {
	return func(a *App) { a.storage = s }
}

// WithIO подменяет стандартные потоки.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) {
		a.in, a.out, a.errOut = in, out, errOut
	}
}

// App зависимости команд. Собирается один раз перед выполнением команды.
type App struct {
	configPath  string
	verbose     bool
	noInput     bool
	interactive bool

	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	log     *slog.Logger
	storage session.Storage
	store   *session.Store
	client  *backend.Client

	auth      *authsvc.AuthService
	users     *userssvc.UsersService
	subs      *subsvc.SubscriptionService
	dashboard *dashsvc.DashboardService
	router    *navigation.Router

	closers []func() error
}

func newApp(opts ...Option) *App {
	a := &App{
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// setup загружает конфиг и собирает сервисы.
func (a *App) setup(ctx context.Context) error {
	const op = "cli.setup"

	if a.cfg == nil {
		path := a.configPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		a.cfg = cfg
	}
	a.log = setupLogger(a.cfg.Env, a.verbose, a.errOut)
	a.interactive = !a.noInput && isTerminal(a.in)

	if a.storage == nil {
		storage, err := a.openStorage(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		a.storage = storage
	}
	a.store = session.NewStore(a.storage, a.log)

	metrics := backend.NewMetrics(prometheus.NewRegistry())
	a.client = backend.NewClient(a.cfg.Backend, a.store, a.log,
		backend.WithHTTPClient(metrics.InstrumentedHTTPClient(backend.DefaultHTTPClient(a.cfg.Backend))),
	)

	a.auth = authsvc.NewAuthService(a.client, a.store, a.log)
	a.users = userssvc.NewUsersService(a.client, a.log)
	a.subs = subsvc.NewSubscriptionService(a.client, a.log)
	a.dashboard = dashsvc.NewDashboardService(a.client, a.log)
	a.router = navigation.NewPortalRouter(a.store, a.subs, a.cfg.Guard, a.log)

	a.log.Debug("cli initialized",
		slog.String("backend", a.cfg.BaseURL),
		slog.String("session_driver", a.cfg.Driver),
		slog.String("device_id", a.client.DeviceID()),
	)
	return nil
}

func (a *App) openStorage(ctx context.Context) (session.Storage, error) {
	switch a.cfg.Driver {
	case DriverMemory:
		return session.NewMemoryStorage(), nil
	case DriverRedis:
		rs := session.NewRedisStorage(a.cfg.RedisConnection, a.cfg.KeyPrefix)
		a.closers = append(a.closers, rs.Close)
		if err := rs.Ping(ctx); err != nil {
			a.log.Warn("session storage unavailable, continuing as logged out", sl.Err(err))
		}
		return rs, nil
	case DriverFile, "":
		return session.NewFileStorage(a.cfg.FilePath)
	default:
		return nil, fmt.Errorf("unknown session driver %q", a.cfg.Driver)
	}
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c(); err != nil && a.log != nil {
			a.log.Warn("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}

func setupLogger(env string, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbose:
		level = slog.LevelDebug
	case env == "local":
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// errInteractiveOnly возвращается, когда значение можно получить только
// из интерактивного ввода.
var errInteractiveOnly = errors.New("input required; pass it as a flag or run in a terminal")
