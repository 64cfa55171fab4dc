// Package wizard реализует двухшаговый мастер добавления пользователя
// администратором: ввод данных и подтверждение почты кодом.
//
// После шага Details на бэкенде уже существует неподтверждённый
// пользователь. Любой выход из шага Verification до успешного
// подтверждения удаляет его ровно один раз; сбой удаления не блокирует
// переход и возвращается как apperr.ErrCleanup.
//
// Wizard не предназначен для одновременного использования из нескольких
// горутин.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/lib/validate"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

// Сообщения мастера.
const (
	MsgInvalidCode    = "Invalid verification code. Please try again."
	MsgIncompleteCode = "Please enter the 6-character verification code."
	MsgCreateFailed   = "Failed to create user. Please try again."
	MsgVerified       = "User verified successfully."
	MsgPhotoFailed    = "User verified, but the profile photo could not be uploaded."
	MsgCleanupFailed  = "The unverified user could not be removed and may need manual cleanup."
	MsgCodeResent     = "A new verification code has been sent."
)

// ErrWrongStep действие недоступно на текущем шаге.
var ErrWrongStep = errors.New("action is not available at this step")

// Registrar операции аутентификации, нужные мастеру.
type Registrar interface {
	CreateUser(ctx context.Context, details models.RegisterDetails) (*models.PendingRegistration, error)
	VerifyEmail(ctx context.Context, userID, code string) error
	ResendVerification(ctx context.Context, email string) error
}

// Users операции над пользователями, нужные мастеру.
type Users interface {
	Delete(ctx context.Context, id string) error
	UploadPhoto(ctx context.Context, id, filename string, file io.Reader) error
}

// Photo фото профиля, загружаемое после подтверждения.
type Photo struct {
	Filename string
	Data     io.Reader
}

// Result итог успешного подтверждения.
type Result struct {
	User        models.User
	PhotoFailed bool
	Message     string
}

// Wizard мастер добавления пользователя.
type Wizard struct {
	registrar Registrar
	users     Users
	validate  *validator.Validate
	log       *slog.Logger

	step          models.Step
	details       models.RegisterDetails
	pendingUserID string
	pendingEmail  string
	verified      bool

	Code CodeInput
}

// New создаёт мастер в шаге Details.
func New(registrar Registrar, users Users, log *slog.Logger) *Wizard {
	return &Wizard{
		registrar: registrar,
		users:     users,
		validate:  validate.New(),
		log:       log.With(slog.String("component", "wizard")),
	}
}

// Step текущий шаг.
func (w *Wizard) Step() models.Step {
	return w.step
}

// Pending текущий неподтверждённый пользователь.
func (w *Wizard) Pending() models.PendingRegistration {
	return models.PendingRegistration{
		PendingUserID: w.pendingUserID,
		PendingEmail:  w.pendingEmail,
		Step:          w.step,
	}
}

// Open открывает мастер заново в шаге Details без неподтверждённого
// пользователя. Если предыдущий сеанс не был закрыт, его пользователь
// удаляется.
func (w *Wizard) Open(ctx context.Context) error {
	err := w.cleanup(ctx)
	w.reset()
	return err
}

// SubmitDetails проверяет форму и создаёт пользователя. При успехе мастер
// переходит в Verification; при ошибке остаётся в Details.
func (w *Wizard) SubmitDetails(ctx context.Context, details models.RegisterDetails) error {
	const op = "wizard.SubmitDetails"
	if w.step != models.StepDetails {
		return fmt.Errorf("%s: %w", op, ErrWrongStep)
	}
	if err := w.validate.Struct(details); err != nil {
		return fmt.Errorf("%s: %w", op, apperr.Validation(validate.Message(err)))
	}

	pending, err := w.registrar.CreateUser(ctx, details)
	if err != nil {
		w.log.Error("failed to create user", slog.String("email", details.Email), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	w.details = details
	w.pendingUserID = pending.PendingUserID
	w.pendingEmail = pending.PendingEmail
	if w.pendingEmail == "" {
		w.pendingEmail = details.Email
	}
	w.verified = false
	w.step = models.StepVerification
	w.Code.Clear()
	w.log.Info("user created, awaiting verification", slog.String("user_id", w.pendingUserID))
	return nil
}

// SubmitCode подтверждает почту кодом. Пустой code означает значение
// из CodeInput. При успехе загружает фото, если оно передано, и закрывает
// мастер. Ошибка загрузки фото подтверждение не отменяет.
func (w *Wizard) SubmitCode(ctx context.Context, code string, photo *Photo) (*Result, error) {
	const op = "wizard.SubmitCode"
	if w.step != models.StepVerification {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongStep)
	}
	if code == "" {
		if !w.Code.Complete() {
			return nil, fmt.Errorf("%s: %w", op, apperr.Validation(MsgIncompleteCode))
		}
		code = w.Code.Value()
	}
	code, ok := normalizeCode(code)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation(MsgIncompleteCode))
	}

	if err := w.registrar.VerifyEmail(ctx, w.pendingUserID, code); err != nil {
		w.Code.Clear()
		if errors.Is(err, apperr.ErrInvalidCode) {
			err = apperr.New(apperr.KindInvalidCode, 0, MsgInvalidCode, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	w.verified = true

	res := &Result{
		User: models.User{
			UserID:   w.pendingUserID,
			FullName: w.details.FullName,
			Email:    w.pendingEmail,
		},
		Message: MsgVerified,
	}
	if w.details.Role != nil {
		res.User.Role = models.ParseRole(*w.details.Role)
	}

	if photo != nil && photo.Data != nil {
		if err := w.users.UploadPhoto(ctx, w.pendingUserID, photo.Filename, photo.Data); err != nil {
			w.log.Warn("photo upload failed after verification",
				slog.String("user_id", w.pendingUserID),
				sl.Err(err),
			)
			res.PhotoFailed = true
			res.Message = MsgPhotoFailed
		}
	}

	w.log.Info("user verified", slog.String("user_id", w.pendingUserID))
	w.reset()
	return res, nil
}

// ResendCode повторно отправляет код на почту неподтверждённого пользователя.
func (w *Wizard) ResendCode(ctx context.Context) error {
	const op = "wizard.ResendCode"
	if w.step != models.StepVerification {
		return fmt.Errorf("%s: %w", op, ErrWrongStep)
	}
	if err := w.registrar.ResendVerification(ctx, w.pendingEmail); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Back возвращает мастер в Details, удаляя неподтверждённого пользователя.
// Введённые данные формы сохраняются. Переход выполняется даже при сбое
// удаления.
func (w *Wizard) Back(ctx context.Context) error {
	if w.step != models.StepVerification {
		return nil
	}
	err := w.cleanup(ctx)
	w.step = models.StepDetails
	w.Code.Clear()
	return err
}

// Details данные последней отправленной формы.
func (w *Wizard) Details() models.RegisterDetails {
	return w.details
}

// Close закрывает мастер, удаляя неподтверждённого пользователя.
func (w *Wizard) Close(ctx context.Context) error {
	err := w.cleanup(ctx)
	w.reset()
	return err
}

// cleanup удаляет неподтверждённого пользователя. Идентификатор забывается
// до вызова, поэтому повторный вызов не удаляет ещё раз.
func (w *Wizard) cleanup(ctx context.Context) error {
	const op = "wizard.cleanup"
	if w.pendingUserID == "" || w.verified {
		return nil
	}
	id := w.pendingUserID
	w.pendingUserID = ""

	if err := w.users.Delete(ctx, id); err != nil {
		w.log.Warn("failed to remove unverified user", slog.String("user_id", id), sl.Err(err))
		return fmt.Errorf("%s: %w", op, apperr.New(apperr.KindCleanup, 0, MsgCleanupFailed, err))
	}
	w.log.Info("unverified user removed", slog.String("user_id", id))
	return nil
}

func (w *Wizard) reset() {
	w.step = models.StepDetails
	w.details = models.RegisterDetails{}
	w.pendingUserID = ""
	w.pendingEmail = ""
	w.verified = false
	w.Code.Clear()
}
