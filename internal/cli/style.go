package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	authsvc "github.com/magabrotheeeer/lms-portal/internal/services/auth"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf(format, args...)))
}

func printWarn(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf(format, args...)))
}

func printError(w io.Writer, msg string) {
	fmt.Fprintln(w, errorStyle.Render(msg))
}

// UserMessage переводит ошибку в текст для пользователя. Сообщение
// сервера, если оно есть, важнее общего текста для вида ошибки.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, errInteractiveOnly) {
		return err.Error()
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return apperr.UserMessage(err, "Please check the entered data.")
	case apperr.KindInvalidCredentials:
		return apperr.UserMessage(err, authsvc.MsgLoginFailed)
	case apperr.KindInvalidCode:
		return apperr.UserMessage(err, authsvc.MsgInvalidCode)
	case apperr.KindNotFound:
		return apperr.UserMessage(err, "The requested resource was not found.")
	case apperr.KindNetwork:
		return "Unable to reach the server. Please check your connection."
	case apperr.KindServer:
		return apperr.UserMessage(err, "The server failed to process the request. Please try again later.")
	case apperr.KindCleanup, apperr.KindRejected:
		return apperr.UserMessage(err, authsvc.MsgGenericFailure)
	default:
		return authsvc.MsgGenericFailure
	}
}
