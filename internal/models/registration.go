package models

// Step шаг мастера регистрации.
type Step int

const (
	// StepDetails ввод данных аккаунта.
	StepDetails Step = iota
	// StepVerification ввод кода подтверждения почты.
	StepVerification
)

func (s Step) String() string {
	switch s {
	case StepDetails:
		return "details"
	case StepVerification:
		return "verification"
	default:
		return "unknown"
	}
}

// PendingRegistration неподтверждённый пользователь, уже созданный на бэкенде.
// Непустой PendingUserID означает удалённый побочный эффект, который нужно
// либо подтвердить, либо удалить.
type PendingRegistration struct {
	PendingUserID string
	PendingEmail  string
	Step          Step
}

// Decision результат проверки guard-а перед переходом по маршруту.
type Decision struct {
	Allow      bool
	RedirectTo string
	Message    string
}

// Allowed решение «пропустить».
func Allowed() Decision {
	return Decision{Allow: true}
}

// Redirect решение «перенаправить».
func Redirect(to, message string) Decision {
	return Decision{RedirectTo: to, Message: message}
}
