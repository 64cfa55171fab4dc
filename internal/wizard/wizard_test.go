package wizard_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	"github.com/magabrotheeeer/lms-portal/internal/models"
	"github.com/magabrotheeeer/lms-portal/internal/wizard"
)

type RegistrarMock struct{ mock.Mock }

func (m *RegistrarMock) CreateUser(ctx context.Context, details models.RegisterDetails) (*models.PendingRegistration, error) {
	args := m.Called(ctx, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PendingRegistration), args.Error(1)
}

func (m *RegistrarMock) VerifyEmail(ctx context.Context, userID, code string) error {
	return m.Called(ctx, userID, code).Error(0)
}

func (m *RegistrarMock) ResendVerification(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type UsersMock struct{ mock.Mock }

func (m *UsersMock) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *UsersMock) UploadPhoto(ctx context.Context, id, filename string, file io.Reader) error {
	return m.Called(ctx, id, filename, file).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func intPtr(v int) *int { return &v }

func details() models.RegisterDetails {
	return models.RegisterDetails{
		FullName:        "Jane Doe",
		Email:           "jane@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Role:            intPtr(1),
	}
}

// inVerification возвращает мастер, уже создавший пользователя u1.
func inVerification(t *testing.T) (*wizard.Wizard, *RegistrarMock, *UsersMock) {
	t.Helper()
	reg, users := &RegistrarMock{}, &UsersMock{}
	reg.On("CreateUser", mock.Anything, details()).
		Return(&models.PendingRegistration{PendingUserID: "u1", PendingEmail: "jane@example.com", Step: models.StepVerification}, nil).Once()
	w := wizard.New(reg, users, newNoopLogger())
	require.NoError(t, w.SubmitDetails(context.Background(), details()))
	require.Equal(t, models.StepVerification, w.Step())
	return w, reg, users
}

func TestWizard_SubmitDetails_Validation(t *testing.T) {
	reg, users := &RegistrarMock{}, &UsersMock{}
	w := wizard.New(reg, users, newNoopLogger())

	d := details()
	d.ConfirmPassword = "secret2"
	err := w.SubmitDetails(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "passwords do not match", apperr.UserMessage(err, ""))
	assert.Equal(t, models.StepDetails, w.Step())
	reg.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestWizard_SubmitDetails_BackendFailureStaysInDetails(t *testing.T) {
	reg, users := &RegistrarMock{}, &UsersMock{}
	reg.On("CreateUser", mock.Anything, details()).
		Return(nil, apperr.New(apperr.KindRejected, 400, "Email already exists", nil)).Once()
	w := wizard.New(reg, users, newNoopLogger())

	err := w.SubmitDetails(context.Background(), details())
	require.Error(t, err)
	assert.Equal(t, "Email already exists", apperr.UserMessage(err, wizard.MsgCreateFailed))
	assert.Equal(t, models.StepDetails, w.Step())
	assert.Empty(t, w.Pending().PendingUserID)
}

func TestWizard_SubmitCode_Success(t *testing.T) {
	w, reg, users := inVerification(t)
	reg.On("VerifyEmail", mock.Anything, "u1", "ABC123").Return(nil).Once()

	w.Code.Paste("abc123")
	res, err := w.SubmitCode(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.UserID)
	assert.Equal(t, models.RoleInstructor, res.User.Role)
	assert.False(t, res.PhotoFailed)
	assert.Equal(t, wizard.MsgVerified, res.Message)

	assert.Equal(t, models.StepDetails, w.Step())
	assert.Empty(t, w.Pending().PendingUserID)

	// после успеха закрытие не удаляет пользователя
	require.NoError(t, w.Close(context.Background()))
	users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestWizard_SubmitCode_PhotoFailureKeepsVerification(t *testing.T) {
	w, reg, users := inVerification(t)
	reg.On("VerifyEmail", mock.Anything, "u1", "ABC123").Return(nil).Once()
	users.On("UploadPhoto", mock.Anything, "u1", "me.png", mock.Anything).
		Return(apperr.New(apperr.KindServer, 500, "", nil)).Once()

	res, err := w.SubmitCode(context.Background(), "ABC123", &wizard.Photo{Filename: "me.png", Data: strings.NewReader("img")})
	require.NoError(t, err)
	assert.True(t, res.PhotoFailed)
	assert.Equal(t, wizard.MsgPhotoFailed, res.Message)
	users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestWizard_SubmitCode_InvalidCode(t *testing.T) {
	w, reg, _ := inVerification(t)
	reg.On("VerifyEmail", mock.Anything, "u1", "ZZZZZZ").
		Return(apperr.New(apperr.KindInvalidCode, 400, "", nil)).Once()

	w.Code.Paste("zzzzzz")
	_, err := w.SubmitCode(context.Background(), "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidCode)
	assert.Equal(t, wizard.MsgInvalidCode, apperr.UserMessage(err, ""))
	assert.Equal(t, models.StepVerification, w.Step())
	assert.Empty(t, w.Code.Value())
	assert.Equal(t, "u1", w.Pending().PendingUserID)
}

func TestWizard_SubmitCode_IncompleteMakesNoRequest(t *testing.T) {
	w, reg, _ := inVerification(t)

	w.Code.Paste("AB")
	_, err := w.SubmitCode(context.Background(), "", nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	reg.AssertNotCalled(t, "VerifyEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestWizard_SubmitCode_ExplicitCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantSent string
	}{
		{name: "lowercase is uppercased", code: "abc123", wantSent: "ABC123"},
		{name: "surrounding spaces trimmed", code: " ABC123 ", wantSent: "ABC123"},
		{name: "punctuation rejected", code: "AB12!?"},
		{name: "non-ascii letters rejected", code: "АБВ123"},
		{name: "too long", code: "ABC1234"},
		{name: "inner space rejected", code: "AB C12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, reg, _ := inVerification(t)
			if tt.wantSent != "" {
				reg.On("VerifyEmail", mock.Anything, "u1", tt.wantSent).Return(nil).Once()
			}

			_, err := w.SubmitCode(context.Background(), tt.code, nil)
			if tt.wantSent != "" {
				require.NoError(t, err)
				reg.AssertExpectations(t)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, wizard.MsgIncompleteCode, apperr.UserMessage(err, ""))
			assert.Equal(t, models.StepVerification, w.Step())
			reg.AssertNotCalled(t, "VerifyEmail", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestWizard_CleanupOnExit(t *testing.T) {
	exits := map[string]func(w *wizard.Wizard) error{
		"close": func(w *wizard.Wizard) error { return w.Close(context.Background()) },
		"back":  func(w *wizard.Wizard) error { return w.Back(context.Background()) },
		"open":  func(w *wizard.Wizard) error { return w.Open(context.Background()) },
	}
	for name, exit := range exits {
		t.Run(name, func(t *testing.T) {
			w, _, users := inVerification(t)
			users.On("Delete", mock.Anything, "u1").Return(nil).Once()

			require.NoError(t, exit(w))
			assert.Equal(t, models.StepDetails, w.Step())
			assert.Empty(t, w.Pending().PendingUserID)

			// повторный выход не удаляет второй раз
			require.NoError(t, w.Close(context.Background()))
			users.AssertNumberOfCalls(t, "Delete", 1)
		})
	}
}

func TestWizard_CleanupFailureStillTransitions(t *testing.T) {
	w, _, users := inVerification(t)
	users.On("Delete", mock.Anything, "u1").Return(errors.New("connection refused")).Once()

	err := w.Back(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrCleanup)
	assert.Equal(t, wizard.MsgCleanupFailed, apperr.UserMessage(err, ""))
	assert.Equal(t, models.StepDetails, w.Step())
	assert.Equal(t, "Jane Doe", w.Details().FullName)

	require.NoError(t, w.Close(context.Background()))
	users.AssertNumberOfCalls(t, "Delete", 1)
}

func TestWizard_ReopenStartsClean(t *testing.T) {
	w, _, users := inVerification(t)
	users.On("Delete", mock.Anything, "u1").Return(nil).Once()
	require.NoError(t, w.Close(context.Background()))

	require.NoError(t, w.Open(context.Background()))
	assert.Equal(t, models.StepDetails, w.Step())
	assert.Equal(t, models.PendingRegistration{}, w.Pending())
	users.AssertNumberOfCalls(t, "Delete", 1)
}

func TestWizard_ResendCode(t *testing.T) {
	reg, users := &RegistrarMock{}, &UsersMock{}
	w := wizard.New(reg, users, newNoopLogger())
	assert.ErrorIs(t, w.ResendCode(context.Background()), wizard.ErrWrongStep)

	w, reg, _ = inVerification(t)
	reg.On("ResendVerification", mock.Anything, "jane@example.com").Return(nil).Once()
	require.NoError(t, w.ResendCode(context.Background()))
	reg.AssertExpectations(t)
}
