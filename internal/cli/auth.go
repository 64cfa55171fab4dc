package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/lms-portal/internal/models"
)

func (a *App) loginCmd() *cobra.Command {
	var creds models.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ask(&creds.Email, "Email", false); err != nil {
				return err
			}
			if err := a.ask(&creds.Password, "Password", true); err != nil {
				return err
			}
			sess, err := a.auth.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Logged in as %s (%s)", displayName(sess.FullName, sess.Email), sess.Role)
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Home: "+sess.Role.Home()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&creds.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&creds.Password, "password", "p", "", "account password")
	return cmd
}

func (a *App) registerCmd() *cobra.Command {
	var (
		details models.RegisterDetails
		role    string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.askDetails(&details, role); err != nil {
				return err
			}
			sess, err := a.auth.Register(cmd.Context(), details)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if sess.AccessToken == "" {
				printSuccess(out, "Account created. Check %s for a verification code.", details.Email)
				fmt.Fprintf(out, "Then run: lms verify --user-id %s --code <CODE>\n", sess.UserID)
				return nil
			}
			printSuccess(out, "Registered and logged in as %s (%s)", displayName(sess.FullName, sess.Email), sess.Role)
			return nil
		},
	}
	addDetailsFlags(cmd, &details, &role)
	return cmd
}

func (a *App) verifyCmd() *cobra.Command {
	var userID, code string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Confirm an email address with the emailed code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ask(&userID, "User ID", false); err != nil {
				return err
			}
			if err := a.ask(&code, "Verification code", false); err != nil {
				return err
			}
			if err := a.auth.VerifyEmail(cmd.Context(), userID, code); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Email verified. You can log in now.")
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "id of the registered user")
	cmd.Flags().StringVar(&code, "code", "", "verification code")
	return cmd
}

func (a *App) resendCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resend-code",
		Short: "Send the email verification code again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ask(&email, "Email", false); err != nil {
				return err
			}
			if err := a.auth.ResendVerification(cmd.Context(), email); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "A new verification code has been sent to %s", email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the local session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.auth.Logout(cmd.Context()); err != nil {
				printWarn(cmd.OutOrStdout(), "Server logout failed: %s", UserMessage(err))
			}
			printSuccess(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *App) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			sess := a.store.Session()
			if sess == nil {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			body := fmt.Sprintf("%s\nEmail: %s\nRole:  %s\nID:    %s",
				titleStyle.Render(displayName(sess.FullName, sess.Email)),
				sess.Email, sess.Role, sess.UserID)
			if !sess.ExpiresAt.IsZero() {
				body += "\nToken expires: " + sess.ExpiresAt.Local().Format(time.RFC1123)
			}
			fmt.Fprintln(out, boxStyle.Render(body))
			if a.store.Expired(time.Now()) {
				printWarn(out, "The access token has expired; run lms refresh or log in again.")
			}
			return nil
		},
	}
}

func (a *App) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.auth.Refresh(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Session refreshed")
			return nil
		},
	}
}

func (a *App) passwordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change or reset the account password",
	}

	var change models.ChangePasswordRequest
	changeCmd := &cobra.Command{
		Use:   "change",
		Short: "Change the password of the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ask(&change.CurrentPassword, "Current password", true); err != nil {
				return err
			}
			if err := a.ask(&change.NewPassword, "New password", true); err != nil {
				return err
			}
			if err := a.ask(&change.ConfirmNewPassword, "Confirm new password", true); err != nil {
				return err
			}
			if err := a.auth.ChangePassword(cmd.Context(), change); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Password changed")
			return nil
		},
	}
	changeCmd.Flags().StringVar(&change.CurrentPassword, "current", "", "current password")
	changeCmd.Flags().StringVar(&change.NewPassword, "new", "", "new password")
	changeCmd.Flags().StringVar(&change.ConfirmNewPassword, "confirm", "", "new password again")

	var email string
	forgotCmd := &cobra.Command{
		Use:   "forgot",
		Short: "Request a password reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ask(&email, "Email", false); err != nil {
				return err
			}
			if err := a.auth.ForgotPassword(cmd.Context(), email); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "If the account exists, a reset code has been sent to %s", email)
			return nil
		},
	}
	forgotCmd.Flags().StringVarP(&email, "email", "e", "", "account email")

	var reset models.ResetPasswordRequest
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with the emailed reset code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ask(&reset.Email, "Email", false); err != nil {
				return err
			}
			if err := a.ask(&reset.Token, "Reset code", false); err != nil {
				return err
			}
			if err := a.ask(&reset.NewPassword, "New password", true); err != nil {
				return err
			}
			if err := a.ask(&reset.ConfirmPassword, "Confirm new password", true); err != nil {
				return err
			}
			if err := a.auth.ResetPassword(cmd.Context(), reset); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Password reset. You can log in now.")
			return nil
		},
	}
	resetCmd.Flags().StringVarP(&reset.Email, "email", "e", "", "account email")
	resetCmd.Flags().StringVar(&reset.Token, "code", "", "reset code from the email")
	resetCmd.Flags().StringVar(&reset.NewPassword, "new", "", "new password")
	resetCmd.Flags().StringVar(&reset.ConfirmPassword, "confirm", "", "new password again")

	cmd.AddCommand(changeCmd, forgotCmd, resetCmd)
	return cmd
}

func addDetailsFlags(cmd *cobra.Command, d *models.RegisterDetails, role *string) {
	cmd.Flags().StringVar(&d.FullName, "name", "", "full name")
	cmd.Flags().StringVarP(&d.Email, "email", "e", "", "email")
	cmd.Flags().StringVarP(&d.Password, "password", "p", "", "password")
	cmd.Flags().StringVar(&d.ConfirmPassword, "confirm", "", "password again")
	cmd.Flags().StringVar(role, "role", "", "role: student, instructor or admin")
	cmd.Flags().StringVar(&d.PhoneNumber, "phone", "", "phone number (optional)")
	cmd.Flags().StringVar(&d.Bio, "bio", "", "short bio (optional)")
}

// askDetails дозапрашивает обязательные поля формы регистрации.
func (a *App) askDetails(d *models.RegisterDetails, role string) error {
	if err := a.ask(&d.FullName, "Full name", false); err != nil {
		return err
	}
	if err := a.ask(&d.Email, "Email", false); err != nil {
		return err
	}
	if err := a.ask(&d.Password, "Password", true); err != nil {
		return err
	}
	if err := a.ask(&d.ConfirmPassword, "Confirm password", true); err != nil {
		return err
	}
	code, err := a.askRole(role)
	if err != nil {
		return err
	}
	d.Role = code
	return nil
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}
