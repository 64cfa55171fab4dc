// Package services рассылает письма с кодами подтверждения и сброса пароля
// из очередей уведомлений.
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/lib/smtp"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// ErrUnknownKind уведомление неизвестного вида.
var ErrUnknownKind = errors.New("unknown notification kind")

// MailerService превращает уведомления в письма.
type MailerService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewMailerService создает новый экземпляр MailerService.
func NewMailerService(log *slog.Logger, transport smtp.TransportInterface) *MailerService {
	return &MailerService{
		transport: transport,
		log:       log,
	}
}

// Compose возвращает тему и текст письма для уведомления.
func Compose(n models.Notification) (string, string, error) {
	name := n.FullName
	if name == "" {
		name = n.Email
	}
	switch n.Kind {
	case models.NotifyVerification:
		return "Confirm your LMS account",
			fmt.Sprintf("Hello, %s!\n\nYour verification code: %s\n\nEnter it in the portal to activate the account.", name, n.Code),
			nil
	case models.NotifyPasswordReset:
		return "LMS password reset",
			fmt.Sprintf("Hello, %s!\n\nYour password reset code: %s\n\nThe code is valid for one hour. If you did not request a reset, ignore this email.", name, n.Code),
			nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}
}

// HandleNotification обработчик сообщения очереди. Битые сообщения
// подтверждаются и пропускаются; ошибка SMTP возвращает сообщение в очередь.
func (s *MailerService) HandleNotification(body []byte) error {
	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		s.log.Error("failed to unmarshal notification, dropping", sl.Err(err))
		return nil
	}
	if n.Email == "" {
		s.log.Error("notification without recipient, dropping", slog.String("kind", string(n.Kind)))
		return nil
	}
	subject, text, err := Compose(n)
	if err != nil {
		s.log.Error("failed to compose email, dropping", sl.Err(err))
		return nil
	}
	return s.sendEmail(n.Email, subject, text)
}

func (s *MailerService) sendEmail(to, subject, bodyText string) error {
	const op = "services.mailer.sendEmail"
	from := s.transport.Sender()
	envelopeFrom := from
	if addr, err := mail.ParseAddress(from); err == nil {
		envelopeFrom = addr.Address
	}

	msg := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer client.Close()

	if err := client.Mail(envelopeFrom); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", envelopeFrom), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Rcpt(to); err != nil {
		s.log.Error("failed to set RCPT TO", slog.String("recipient", to), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("email sent successfully", slog.String("to", to), slog.String("subject", subject))
	return nil
}
