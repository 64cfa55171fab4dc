package models

// NotificationKind тип письма с кодом.
type NotificationKind string

const (
	// NotifyVerification код подтверждения почты.
	NotifyVerification NotificationKind = "verification"
	// NotifyPasswordReset код сброса пароля.
	NotifyPasswordReset NotificationKind = "password_reset"
)

// Notification письмо, которое dev-бэкенд отправляет пользователю.
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	UserID   string           `json:"userId"`
	Email    string           `json:"email"`
	FullName string           `json:"fullName"`
	Code     string           `json:"code"`
}
