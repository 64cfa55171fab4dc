package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Channel часть *amqp.Channel, нужная для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NewPublishing сериализует событие в JSON и снабжает его идентификатором,
// временем и типом, по которым lms-mailer отбрасывает повторы.
func NewPublishing(kind string, event any, now time.Time) (amqp.Publishing, error) {
	const op = "rabbitmq.NewPublishing"
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("%s: %w", op, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now.UTC(),
		Type:         kind,
		AppId:        "lms-portal",
		Body:         body,
	}, nil
}

// Publish отправляет событие вида kind в exchange с ключом маршрутизации,
// равным виду.
func Publish(ch Channel, exchange, kind string, event any) error {
	const op = "rabbitmq.Publish"
	msg, err := NewPublishing(kind, event, time.Now())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Publish(exchange, kind, false, false, msg); err != nil {
		return fmt.Errorf("%s: kind %q: %w", op, kind, err)
	}
	return nil
}
