package models

import "time"

// Account учётная запись пользователя на стороне dev-бэкенда.
type Account struct {
	ID               string
	FullName         string
	Email            string
	PasswordHash     string
	Role             Role
	PhoneNumber      string
	Bio              string
	IsVerified       bool
	VerificationCode string
	ResetCode        string
	ResetExpiresAt   time.Time
	PhotoName        string
	CreatedAt        time.Time
}

// Summary запись для списка пользователей.
func (a Account) Summary() UserSummary {
	return UserSummary{
		UserID:     a.ID,
		FullName:   a.FullName,
		Email:      a.Email,
		Role:       a.Role,
		IsVerified: a.IsVerified,
	}
}

// RefreshToken выданный refresh-токен.
type RefreshToken struct {
	Token     string
	UserID    string
	DeviceID  string
	ExpiresAt time.Time
}
