// Package validate настраивает go-playground/validator для форм портала
// и переводит ошибки валидации в читаемый текст.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator"
)

// passwordPattern минимум шесть словесных символов.
var passwordPattern = regexp.MustCompile(`^\w{6,}$`)

// New возвращает валидатор с зарегистрированным тегом password.
func New() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return passwordPattern.MatchString(fl.Field().String())
	})
	return v
}

// Message формирует текст ошибки валидации: каждое нарушение отдельной
// фразой, через запятую. Для прочих ошибок возвращает err.Error().
func Message(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fieldMessage(e))
	}
	return strings.Join(msgs, ", ")
}

func fieldMessage(err validator.FieldError) string {
	switch err.ActualTag() {
	case "required":
		return fmt.Sprintf("field %s is a required field", err.Field())
	case "email":
		return fmt.Sprintf("field %s must be a valid email address", err.Field())
	case "eqfield":
		if err.Param() == "Password" || err.Param() == "NewPassword" {
			return "passwords do not match"
		}
		return fmt.Sprintf("field %s must match %s", err.Field(), err.Param())
	case "password":
		return fmt.Sprintf("field %s must contain at least 6 letters, digits or underscores", err.Field())
	case "min":
		return fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param())
	case "alphanum":
		return fmt.Sprintf("field %s can contain only numbers and letters", err.Field())
	case "len":
		return fmt.Sprintf("field %s must be exactly %s characters", err.Field(), err.Param())
	default:
		return fmt.Sprintf("field %s is not valid", err.Field())
	}
}
