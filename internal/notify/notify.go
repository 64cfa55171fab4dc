// Package notify доставка писем с кодами подтверждения и сброса пароля.
// Письма либо публикуются в RabbitMQ и отправляются воркером lms-mailer,
// либо пишутся в лог.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/lms-portal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// LogNotifier пишет письма в лог.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier создаёт LogNotifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With(slog.String("component", "notify.Log"))}
}

// Notify логирует письмо вместе с кодом.
func (n *LogNotifier) Notify(_ context.Context, msg models.Notification) error {
	n.log.Info("notification",
		slog.String("kind", string(msg.Kind)),
		slog.String("email", msg.Email),
		slog.String("code", msg.Code),
	)
	return nil
}

// AMQPNotifier публикует письма в exchange уведомлений с ключом,
// равным виду письма.
type AMQPNotifier struct {
	mu       sync.Mutex
	ch       rabbitmq.Channel
	exchange string
}

// NewAMQPNotifier создаёт AMQPNotifier поверх настроенного канала.
func NewAMQPNotifier(ch rabbitmq.Channel, exchange string) *AMQPNotifier {
	return &AMQPNotifier{ch: ch, exchange: exchange}
}

// Notify публикует письмо. Канал AMQP не потокобезопасен, публикации
// сериализуются.
func (n *AMQPNotifier) Notify(ctx context.Context, msg models.Notification) error {
	const op = "notify.AMQP"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := rabbitmq.Publish(n.ch, n.exchange, string(msg.Kind), msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
