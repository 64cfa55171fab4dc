// Package mailer собирает воркер рассылки: читает очереди уведомлений
// dev-бэкенда и отправляет письма через SMTP.
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/lms-portal/internal/config"
	"github.com/magabrotheeeer/lms-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/lib/smtp"
	mailerservice "github.com/magabrotheeeer/lms-portal/internal/services/mailer"
)

// App воркер рассылки.
type App struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	service *mailerservice.MailerService
	logger  *slog.Logger
}

// New подключается к брокеру и объявляет очереди уведомлений.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "mailer.New"
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("%s: rabbitmq url is not configured", op)
	}
	conn, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationsExchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.Mailer, logger)
	return &App{
		conn:    conn,
		ch:      ch,
		service: mailerservice.NewMailerService(logger, transport),
		logger:  logger,
	}, nil
}

// Run обрабатывает очереди до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	for _, q := range rabbitmq.GetNotificationQueues() {
		if err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.logger, a.service.HandleNotification); err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			a.shutdown()
			return err
		}
		a.logger.Info("consuming queue", slog.String("queue", q.QueueName))
	}

	<-ctx.Done()
	a.logger.Info("mailer shutting down gracefully")
	a.shutdown()
	return nil
}

func (a *App) shutdown() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
}
