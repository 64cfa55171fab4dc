// Package models содержит доменные типы портала: роли, сессию пользователя,
// данные регистрации, подписки преподавателя и решения guard-ов навигации.
package models

import "time"

// User денормализованная запись пользователя, хранимая рядом с токенами
// под ключом user_data.
type User struct {
	UserID    string    `json:"userId"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Session клиентская сессия: пользователь и пара токенов.
type Session struct {
	UserID       string
	FullName     string
	Email        string
	Role         Role
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// User возвращает запись пользователя без токенов.
func (s Session) User() User {
	return User{
		UserID:    s.UserID,
		FullName:  s.FullName,
		Email:     s.Email,
		Role:      s.Role,
		ExpiresAt: s.ExpiresAt,
	}
}

// Credentials данные для входа.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterDetails данные формы регистрации и мастера добавления пользователя.
// Role передаётся числовым кодом 0..2.
type RegisterDetails struct {
	FullName        string `json:"fullName" validate:"required,min=3,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            *int   `json:"role" validate:"required,min=0,max=2"`
	PhoneNumber     string `json:"phoneNumber,omitempty" validate:"omitempty,min=7,max=20"`
	Bio             string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// ChangePasswordRequest смена пароля авторизованным пользователем.
type ChangePasswordRequest struct {
	CurrentPassword    string `json:"currentPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,password"`
	ConfirmNewPassword string `json:"confirmNewPassword" validate:"required,eqfield=NewPassword"`
}

// ResetPasswordRequest сброс пароля по коду из письма.
type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=NewPassword"`
}

// UserSummary строка списка пользователей в админке.
type UserSummary struct {
	UserID     string `json:"userId"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	IsVerified bool   `json:"isVerified"`
}
