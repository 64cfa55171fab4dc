package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// ask запрашивает значение, если оно не передано флагом.
func (a *App) ask(value *string, title string, secret bool) error {
	if *value != "" {
		return nil
	}
	if !a.interactive {
		return fmt.Errorf("%s: %w", strings.ToLower(title), errInteractiveOnly)
	}
	input := huh.NewInput().Title(title).Value(value)
	if secret {
		input = input.EchoMode(huh.EchoModePassword)
	}
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// askRole запрашивает роль, если она не передана флагом.
func (a *App) askRole(role string) (*int, error) {
	if role != "" {
		r := models.ParseRole(role)
		if !r.Valid() {
			return nil, fmt.Errorf("unknown role %q", role)
		}
		code := r.Code()
		return &code, nil
	}
	if !a.interactive {
		return nil, fmt.Errorf("role: %w", errInteractiveOnly)
	}
	var selected string
	field := huh.NewSelect[string]().
		Title("Role").
		Options(
			huh.NewOption(models.RoleStudent.String(), strconv.Itoa(models.RoleStudent.Code())),
			huh.NewOption(models.RoleInstructor.String(), strconv.Itoa(models.RoleInstructor.Code())),
			huh.NewOption(models.RoleAdmin.String(), strconv.Itoa(models.RoleAdmin.Code())),
		).
		Value(&selected)
	if err := huh.NewForm(huh.NewGroup(field)).Run(); err != nil {
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	code, err := strconv.Atoi(selected)
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// readLine читает строку из ввода в неинтерактивном режиме.
func (a *App) readLine() (string, error) {
	if a.reader == nil {
		a.reader = bufio.NewReader(a.in)
	}
	line, err := a.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
