// Package apperr описывает виды ошибок клиента портала и их перевод
// в сообщения для пользователя.
package apperr

import (
	"errors"
	"fmt"
)

// Kind вид ошибки.
type Kind int

const (
	// KindValidation ошибка клиентской валидации, запрос не отправлялся.
	KindValidation Kind = iota + 1
	// KindInvalidCredentials бэкенд отверг логин или пароль.
	KindInvalidCredentials
	// KindInvalidCode бэкенд отверг код подтверждения.
	KindInvalidCode
	// KindNotFound ответ 404.
	KindNotFound
	// KindNetwork транспортная ошибка или таймаут.
	KindNetwork
	// KindServer ответ 5xx или непредвиденный статус.
	KindServer
	// KindCleanup не удалась компенсирующая операция.
	KindCleanup
	// KindRejected прочие 4xx с сообщением сервера.
	KindRejected
)

// Ошибки-образцы для errors.Is: сравнение идёт только по виду.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrInvalidCode        = &Error{Kind: KindInvalidCode}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrNetwork            = &Error{Kind: KindNetwork}
	ErrServer             = &Error{Kind: KindServer}
	ErrCleanup            = &Error{Kind: KindCleanup}
	ErrRejected           = &Error{Kind: KindRejected}
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindInvalidCode:
		return "invalid code"
	case KindNotFound:
		return "not found"
	case KindNetwork:
		return "network error"
	case KindServer:
		return "server error"
	case KindCleanup:
		return "cleanup failure"
	case KindRejected:
		return "request rejected"
	default:
		return "unknown error"
	}
}

// Error ошибка с видом, HTTP-статусом и сообщением сервера, если оно было.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// New создаёт ошибку указанного вида.
func New(kind Kind, status int, message string, err error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, Err: err}
}

// Validation создаёт ошибку валидации с текстом для формы.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по виду, поэтому errors.Is(err, ErrNotFound)
// срабатывает для любой ошибки вида KindNotFound.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf возвращает вид ошибки или 0, если это не *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// UserMessage возвращает сообщение сервера, если оно есть, иначе fallback.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// WithKind перевыпускает ошибку с другим видом, сохраняя статус и сообщение.
func WithKind(err error, kind Kind) error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: kind, Status: e.Status, Message: e.Message, Err: e.Err}
	}
	return &Error{Kind: kind, Err: err}
}
