package devbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/magabrotheeeer/lms-portal/internal/config"
	"github.com/magabrotheeeer/lms-portal/internal/http/middlewarectx"
	"github.com/magabrotheeeer/lms-portal/internal/lib/jwt"
	"github.com/magabrotheeeer/lms-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/migrations"
	"github.com/magabrotheeeer/lms-portal/internal/notify"
	accounts "github.com/magabrotheeeer/lms-portal/internal/services/accounts"
	"github.com/magabrotheeeer/lms-portal/internal/storage"
	"github.com/magabrotheeeer/lms-portal/internal/storage/memory"
)

// App dev-бэкенд: HTTP-сервер и ресурсы, которые нужно закрыть при остановке.
type App struct {
	server  *http.Server
	logger  *slog.Logger
	closers []func() error
}

// New собирает приложение по конфигу. Без строки подключения к PostgreSQL
// данные живут в памяти, без адреса RabbitMQ письма пишутся в лог.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "devbackend.New"
	app := &App{logger: logger}

	repo, err := app.openRepository(ctx, cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	notifier, err := app.openNotifier(ctx, cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	secret := cfg.JWTSecretKey
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("jwt secret is not configured, using a random one; tokens will not survive restart")
	}
	maker := jwt.NewJWTMaker(secret, cfg.TokenTTL)

	svc := accounts.NewAccountsService(repo, maker, cfg.RefreshTokenTTL, logger, accounts.WithNotifier(notifier))
	if cfg.AdminPassword != "" {
		if err := svc.SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	} else {
		logger.Warn("admin password is not configured, no admin account seeded")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := NewHandler(Deps{
		Logger:   logger,
		Service:  svc,
		Tokens:   maker,
		Limiter:  middlewarectx.NewRateLimiter(cfg.ClientRPS, cfg.ClientBurst),
		Registry: reg,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      handler,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func (a *App) openRepository(ctx context.Context, cfg *config.Config) (accounts.Repository, error) {
	if cfg.StorageConnectionString == "" {
		a.logger.Info("using in-memory storage")
		return memory.New(), nil
	}
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	if err := migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	if err := storage.CheckDatabaseReady(ctx, db); err != nil {
		return nil, err
	}
	a.logger.Info("using postgres storage")
	return db, nil
}

func (a *App) openNotifier(ctx context.Context, cfg *config.Config) (accounts.Notifier, error) {
	if cfg.RabbitMQURL == "" {
		return notify.NewLogNotifier(a.logger), nil
	}
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationsExchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, ch.Close)
	a.logger.Info("publishing notifications to rabbitmq", slog.String("exchange", rabbitmq.NotificationsExchange))
	return notify.NewAMQPNotifier(ch, rabbitmq.NotificationsExchange), nil
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}

// Run обслуживает запросы до отмены ctx, затем плавно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		return a.server.Shutdown(timeoutCtx)
	}
}
