package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/lms-portal/internal/guard"
	"github.com/magabrotheeeer/lms-portal/internal/lib/apperr"
	"github.com/magabrotheeeer/lms-portal/internal/lib/sl"
	"github.com/magabrotheeeer/lms-portal/internal/models"
	"github.com/magabrotheeeer/lms-portal/internal/poller"
	"github.com/magabrotheeeer/lms-portal/internal/wizard"
)

// Действия шага подтверждения в интерактивном мастере.
const (
	actionVerify = "verify"
	actionResend = "resend"
	actionBack   = "back"
	actionCancel = "cancel"
)

func (a *App) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator screens",
	}
	cmd.AddCommand(a.addUserCmd(), a.dashboardCmd(), a.ticketsCmd(), a.usersCmd())
	return cmd
}

// requireAdmin проверяет доступ к разделу /admin так же, как навигация.
func (a *App) requireAdmin(ctx context.Context, target string) error {
	d := guard.AdminGuard(a.store, a.log).Check(ctx, target)
	if d.Allow {
		return nil
	}
	return apperr.New(apperr.KindRejected, 0, "Administrator access required; redirected to "+d.RedirectTo, nil)
}

func (a *App) addUserCmd() *cobra.Command {
	var (
		details   models.RegisterDetails
		role      string
		code      string
		photoPath string
	)
	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Create a user and confirm their email in two steps",
		Long: `Creates a user on the backend and confirms the email with the code sent
to the new user. Leaving the verification step before success removes the
unconfirmed user again.

Examples:
  lms admin add-user
  lms admin add-user --name "Jane Doe" --email jane@example.com \
    --password secret1 --confirm secret1 --role instructor --code AB12CD`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.requireAdmin(ctx, "/admin/users"); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w := wizard.New(a.auth, a.users, a.log)
			if err := w.Open(ctx); err != nil {
				return err
			}
			// Прерывание в любой момент удаляет неподтверждённого пользователя.
			defer func() {
				if err := w.Close(context.WithoutCancel(ctx)); err != nil {
					printWarn(out, "%s", UserMessage(err))
				}
			}()

			if err := a.askDetails(&details, role); err != nil {
				return err
			}
			if err := w.SubmitDetails(ctx, details); err != nil {
				return err
			}
			printSuccess(out, "User created. A verification code was sent to %s", w.Pending().PendingEmail)

			var photo *wizard.Photo
			if photoPath != "" {
				f, err := os.Open(photoPath)
				if err != nil {
					return fmt.Errorf("open photo: %w", err)
				}
				defer f.Close()
				photo = &wizard.Photo{Filename: filepath.Base(photoPath), Data: f}
			}

			res, err := a.verifyLoop(ctx, w, code, photo)
			if err != nil {
				return err
			}
			if res.PhotoFailed {
				printWarn(out, "%s", res.Message)
			} else {
				printSuccess(out, "%s", res.Message)
			}
			fmt.Fprintf(out, "%s  %s <%s>  %s\n", res.User.UserID, res.User.FullName, res.User.Email, res.User.Role)
			return nil
		},
	}
	addDetailsFlags(cmd, &details, &role)
	cmd.Flags().StringVar(&code, "code", "", "verification code (asked after creation when omitted)")
	cmd.Flags().StringVar(&photoPath, "photo", "", "profile photo to upload after verification")
	return cmd
}

// verifyLoop ведёт шаг подтверждения. С кодом из флага делается одна
// попытка; в интерактивном режиме можно повторить ввод, запросить код
// заново или вернуться к форме.
func (a *App) verifyLoop(ctx context.Context, w *wizard.Wizard, code string, photo *wizard.Photo) (*wizard.Result, error) {
	if code != "" {
		w.Code.Paste(code)
		return w.SubmitCode(ctx, "", photo)
	}
	if !a.interactive {
		fmt.Fprint(a.out, "Verification code: ")
		line, err := a.readLine()
		if err != nil {
			return nil, err
		}
		w.Code.Paste(line)
		return w.SubmitCode(ctx, "", photo)
	}

	for {
		var action, input string
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Verification code").
				Description(fmt.Sprintf("%d characters, sent to %s", wizard.CodeLength, w.Pending().PendingEmail)).
				Value(&input),
			huh.NewSelect[string]().
				Title("Action").
				Options(
					huh.NewOption("Verify", actionVerify),
					huh.NewOption("Resend code", actionResend),
					huh.NewOption("Back to details", actionBack),
					huh.NewOption("Cancel", actionCancel),
				).
				Value(&action),
		))
		if err := form.Run(); err != nil {
			return nil, fmt.Errorf("prompt failed: %w", err)
		}

		switch action {
		case actionResend:
			if err := w.ResendCode(ctx); err != nil {
				printError(a.out, UserMessage(err))
				continue
			}
			printSuccess(a.out, "%s", wizard.MsgCodeResent)
		case actionBack:
			if err := w.Back(ctx); err != nil {
				printWarn(a.out, "%s", UserMessage(err))
			}
			details := w.Details()
			details.Password, details.ConfirmPassword = "", ""
			if err := a.askDetails(&details, roleName(details.Role)); err != nil {
				return nil, err
			}
			if err := w.SubmitDetails(ctx, details); err != nil {
				return nil, err
			}
			printSuccess(a.out, "User created. A verification code was sent to %s", w.Pending().PendingEmail)
		case actionCancel:
			return nil, errors.New("cancelled")
		default:
			w.Code.Clear()
			w.Code.Paste(input)
			res, err := w.SubmitCode(ctx, "", photo)
			if err == nil {
				return res, nil
			}
			if !errors.Is(err, apperr.ErrInvalidCode) && !errors.Is(err, apperr.ErrValidation) {
				return nil, err
			}
			printError(a.out, UserMessage(err))
		}
	}
}

func roleName(code *int) string {
	if code == nil {
		return ""
	}
	return models.ParseRole(*code).String()
}

func (a *App) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List or delete users",
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireAdmin(cmd.Context(), "/admin/users"); err != nil {
				return err
			}
			list, err := a.users.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tVERIFIED")
			for _, u := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", u.UserID, u.FullName, u.Email, u.Role, u.IsVerified)
			}
			return tw.Flush()
		},
	}
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(cmd.Context(), "/admin/users"); err != nil {
				return err
			}
			if err := a.users.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "User %s deleted", args[0])
			return nil
		},
	}
	cmd.AddCommand(listCmd, deleteCmd)
	return cmd
}

func (a *App) dashboardCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the admin dashboard",
		Long: `Loads dashboard statistics, users, courses and support tickets in parallel.
With --watch the view is reloaded every poll.dashboard_interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.requireAdmin(ctx, "/admin"); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !watch {
				d, err := a.dashboard.Load(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderDashboard(d))
				return nil
			}

			p := &poller.Poller[*models.Dashboard]{
				Name:     "dashboard",
				Interval: a.cfg.DashboardInterval,
				Fetch:    a.dashboard.Load,
				Apply: func(d *models.Dashboard) {
					fmt.Fprintln(out, mutedStyle.Render(time.Now().Format(time.TimeOnly)))
					fmt.Fprintln(out, renderDashboard(d))
				},
				Log: a.log,
			}
			p.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep reloading until interrupted")
	return cmd
}

func (a *App) ticketsCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List support tickets",
		Long: `Lists support tickets. With --watch the list is reloaded every
poll.tickets_interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.requireAdmin(ctx, "/admin/support"); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !watch {
				tickets, err := a.dashboard.Tickets(ctx)
				if err != nil {
					return err
				}
				return writeTickets(out, tickets)
			}

			p := &poller.Poller[[]models.Ticket]{
				Name:     "tickets",
				Interval: a.cfg.TicketsInterval,
				Fetch:    a.dashboard.Tickets,
				Apply: func(tickets []models.Ticket) {
					fmt.Fprintln(out, mutedStyle.Render(time.Now().Format(time.TimeOnly)))
					if err := writeTickets(out, tickets); err != nil {
						a.log.Warn("failed to print tickets", sl.Err(err))
					}
				},
				Log: a.log,
			}
			p.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep reloading until interrupted")
	return cmd
}

func writeTickets(w io.Writer, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		fmt.Fprintln(w, "No support tickets")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSUBJECT\tCREATED")
	for _, t := range tickets {
		created := ""
		if !t.CreatedAt.IsZero() {
			created = t.CreatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Subject, created)
	}
	return tw.Flush()
}

func renderDashboard(d *models.Dashboard) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dashboard"))
	fmt.Fprintf(&b, "\nUsers: %d  Courses: %d  Enrollments: %d  Open tickets: %d\n",
		d.Stats.TotalUsers, d.Stats.TotalCourses, d.Stats.TotalEnrollments, d.Stats.OpenTickets)

	b.WriteString("\n" + titleStyle.Render("Users") + "\n")
	for _, u := range d.Users {
		fmt.Fprintf(&b, "  %-36s %-24s %s\n", u.UserID, u.FullName, u.Role)
	}
	b.WriteString("\n" + titleStyle.Render("Courses") + "\n")
	for _, c := range d.Courses {
		state := "draft"
		if c.IsPublished {
			state = "published"
		}
		fmt.Fprintf(&b, "  %-36s %-32s %s\n", c.ID, c.Title, state)
	}
	b.WriteString("\n" + titleStyle.Render("Tickets") + "\n")
	for _, t := range d.Tickets {
		fmt.Fprintf(&b, "  %-36s %-10s %s\n", t.ID, t.Status, t.Subject)
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
