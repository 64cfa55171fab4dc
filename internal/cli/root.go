package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCmd собирает дерево команд lms.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := newApp(opts...)

	root := &cobra.Command{
		Use:   "lms",
		Short: "Command line client for the LMS portal",
		Long: `lms is a command line client for the LMS portal.

It keeps the session (access token, refresh token and user record) in the
configured session storage and checks role and subscription guards before
opening a portal page.

Examples:
  lms login --email jane@example.com
  lms whoami
  lms open /instructor/courses
  lms admin add-user`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			a.close()
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to config file (default $CONFIG_PATH)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.noInput, "no-input", false, "never prompt; fail when a value is missing")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.verifyCmd(),
		a.resendCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.refreshCmd(),
		a.passwordCmd(),
		a.openCmd(),
		a.adminCmd(),
	)
	return root
}

// ExecuteContext выполняет команду и печатает ошибку в понятном пользователю виде.
func ExecuteContext(ctx context.Context, args []string, opts ...Option) error {
	root := NewRootCmd(opts...)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		printError(root.ErrOrStderr(), UserMessage(err))
	}
	return err
}
