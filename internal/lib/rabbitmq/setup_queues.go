package rabbitmq

// NotificationsExchange exchange писем dev-бэкенда.
const NotificationsExchange = "notifications"

// Ключи маршрутизации уведомлений.
const (
	RoutingVerification  = "verification"
	RoutingPasswordReset = "password_reset"
)

// QueueConfig очередь и ключ, которым она привязана к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues очереди писем с кодами.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notification.verification", RoutingKey: RoutingVerification},
		{QueueName: "notification.password_reset", RoutingKey: RoutingPasswordReset},
	}
}
