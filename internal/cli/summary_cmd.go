package cli

import (
	"fmt"

	"github.com/alexanderramin/procflow/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show workspace totals: budget, savings, progress and overdue projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			s, err := app.Projects.Summary(cmd.Context(), code)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatSummary(s))
			return nil
		},
	}
}
