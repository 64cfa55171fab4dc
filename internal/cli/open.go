package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <route>",
		Short: "Check whether a portal page can be opened",
		Long: `Runs the route and subscription guards for the given portal page and
prints where the navigation ends up: the page itself or the redirect target.

Examples:
  lms open /admin
  lms open /instructor/courses`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			out := cmd.OutOrStdout()
			d := a.router.Navigate(cmd.Context(), target)
			if d.Allow {
				printSuccess(out, "Opened %s", target)
				return nil
			}
			if d.Message != "" {
				printWarn(out, "%s", d.Message)
			}
			fmt.Fprintf(out, "Redirected to %s\n", d.RedirectTo)
			return nil
		},
	}
}
