package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Role уровень доступа пользователя портала.
//
// Бэкенд присылает роль то строкой ("Admin", "instructor"), то числовым кодом
// (0, "1"), поэтому роль нормализуется один раз при записи сессии.
type Role int

const (
	// RoleUnknown роль не распознана, ни один guard её не пропускает.
	// Нулевое значение, чтобы пустая запись не получала прав.
	RoleUnknown Role = iota
	// RoleAdmin администратор, код 0.
	RoleAdmin
	// RoleInstructor преподаватель, код 1.
	RoleInstructor
	// RoleStudent студент, код 2.
	RoleStudent
)

var roleNames = map[Role]string{
	RoleAdmin:      "Admin",
	RoleInstructor: "Instructor",
	RoleStudent:    "Student",
}

// ParseRole приводит значение роли из ответа бэкенда к Role.
// Принимает имя роли в любом регистре, числовой код строкой или числом.
func ParseRole(v any) Role {
	switch r := v.(type) {
	case Role:
		return r
	case int:
		return roleFromCode(r)
	case int64:
		return roleFromCode(int(r))
	case float64:
		if r != float64(int(r)) {
			return RoleUnknown
		}
		return roleFromCode(int(r))
	case json.Number:
		n, err := r.Int64()
		if err != nil {
			return RoleUnknown
		}
		return roleFromCode(int(n))
	case string:
		s := strings.TrimSpace(r)
		if n, err := strconv.Atoi(s); err == nil {
			return roleFromCode(n)
		}
		for role, name := range roleNames {
			if strings.EqualFold(s, name) {
				return role
			}
		}
	}
	return RoleUnknown
}

func roleFromCode(code int) Role {
	role := Role(code + 1)
	if _, ok := roleNames[role]; !ok {
		return RoleUnknown
	}
	return role
}

// String возвращает каноническое имя роли.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

// Code возвращает числовой код роли, -1 для неизвестной.
func (r Role) Code() int {
	if !r.Valid() {
		return -1
	}
	return int(r) - 1
}

// Valid сообщает, распознана ли роль.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Home возвращает домашний маршрут роли.
func (r Role) Home() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleInstructor:
		return "/instructor"
	case RoleStudent:
		return "/student"
	default:
		return "/login"
	}
}

// MarshalJSON сериализует роль каноническим именем.
func (r Role) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON принимает оба представления роли.
func (r *Role) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("models.Role: %w", err)
	}
	*r = ParseRole(raw)
	return nil
}
